package rules

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RuleKind selects the evaluation semantics of a rule.
type RuleKind string

const (
	// KindThreshold compares an instantaneous value against a fixed limit.
	KindThreshold RuleKind = "threshold"
	// KindPatternAnomaly compares relative change between the two most
	// recent trend buckets.
	KindPatternAnomaly RuleKind = "pattern_anomaly"
)

// Severity grades an emitted alert.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// AlertRule is an operator-supplied alert condition. The engine only
// reads rules; creation and editing happen outside the monitoring loop.
type AlertRule struct {
	ID              string          `json:"id" mapstructure:"id"`
	Name            string          `json:"name" mapstructure:"name"`
	Description     string          `json:"description" mapstructure:"description"`
	Kind            RuleKind        `json:"kind" mapstructure:"kind"`
	ComparisonValue decimal.Decimal `json:"comparison_value" mapstructure:"comparison_value"`
	Enabled         bool            `json:"enabled" mapstructure:"enabled"`
}

// Validate checks the rule invariants.
func (r AlertRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if r.Kind != KindThreshold && r.Kind != KindPatternAnomaly {
		return fmt.Errorf("rule %s: unknown kind %q", r.ID, string(r.Kind))
	}
	if r.ComparisonValue.IsNegative() {
		return fmt.Errorf("rule %s: comparison_value cannot be negative", r.ID)
	}
	return nil
}

// AlertEvent records a single rule firing. Immutable once created.
type AlertEvent struct {
	ID        string    `json:"id"`
	RuleID    string    `json:"rule_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Kind      RuleKind  `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}
