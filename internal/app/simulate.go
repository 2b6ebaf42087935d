package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"usage-alerts/internal/metering"
	"usage-alerts/internal/monitor"
	"usage-alerts/internal/rules"
	"usage-alerts/internal/source"
)

// SimulateAlert runs a single tick against a fixed batch to exercise a
// threshold alert end to end, including the configured sinks.
func (a *App) SimulateAlert(ctx context.Context, amount, threshold decimal.Decimal) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	now := time.Now().UTC()
	src := &staticSource{records: []metering.UsageRecord{{
		CustomerID: "cust-simulated",
		Type:       metering.UsageData,
		Amount:     amount,
		Timestamp:  now,
	}}}

	mon, err := monitor.New(monitor.Options{
		Source: src,
		Rules: []rules.AlertRule{{
			ID:              "simulated-threshold",
			Name:            "Simulated threshold alert",
			Description:     "triggered by the simulate-alert command",
			Kind:            rules.KindThreshold,
			ComparisonValue: threshold,
			Enabled:         true,
		}},
		Notifier: a.newNotifier(),
	}, a.Logger)
	if err != nil {
		return err
	}

	if err := mon.Tick(ctx, now); err != nil {
		return err
	}
	if mon.History().Len() == 0 {
		a.Logger.Info().Msg("simulated tick completed without firing; raise --amount or lower --threshold")
	}
	return nil
}

type staticSource struct {
	records []metering.UsageRecord
}

func (s *staticSource) Fetch(ctx context.Context, now time.Time) ([]metering.UsageRecord, error) {
	return s.records, nil
}

var _ source.RecordSource = (*staticSource)(nil)
