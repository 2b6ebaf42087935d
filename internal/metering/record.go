package metering

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// UsageType classifies a usage observation.
type UsageType string

const (
	UsageData  UsageType = "data"
	UsageVoice UsageType = "voice"
	UsageSMS   UsageType = "sms"
	UsageOther UsageType = "other"
)

// Known reports whether t is one of the defined usage types.
func (t UsageType) Known() bool {
	switch t {
	case UsageData, UsageVoice, UsageSMS, UsageOther:
		return true
	}
	return false
}

// UsageRecord is a single immutable usage observation.
type UsageRecord struct {
	CustomerID string          `json:"customer_id"`
	Type       UsageType       `json:"usage_type"`
	Amount     decimal.Decimal `json:"usage_amount"`
	Timestamp  time.Time       `json:"usage_date"`
}

// ValidationError reports a record rejected at ingestion.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid usage record: %s %s", e.Field, e.Reason)
}

// Validate checks the invariants enforced at ingestion time.
func (r UsageRecord) Validate() error {
	if r.Amount.IsNegative() {
		return &ValidationError{Field: "usage_amount", Reason: "must not be negative"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "usage_date", Reason: "is missing"}
	}
	if !r.Type.Known() {
		return &ValidationError{Field: "usage_type", Reason: fmt.Sprintf("%q is not recognised", string(r.Type))}
	}
	return nil
}
