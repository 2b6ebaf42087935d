package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateAmount    float64
	simulateThreshold float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Run one tick against a fixed batch and trigger a threshold alert",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateAmount < 0 || simulateThreshold < 0 {
			return errors.New("--amount and --threshold must not be negative")
		}

		amount := decimal.NewFromFloat(simulateAmount)
		threshold := decimal.NewFromFloat(simulateThreshold)
		return getApp().SimulateAlert(cmd.Context(), amount, threshold)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateAmount, "amount", 1200, "Simulated usage amount")
	simulateCmd.Flags().Float64Var(&simulateThreshold, "threshold", 1000, "Threshold the simulated rule compares against")
}
