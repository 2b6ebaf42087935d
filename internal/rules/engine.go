package rules

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"usage-alerts/internal/metering"
)

var decHundred = decimal.NewFromInt(100)

// Engine evaluates the enabled alert rules against the latest
// statistics/trend state. It is the sole creator of AlertEvents.
type Engine struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewEngine constructs a rule engine.
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{
		logger: logger.With().Str("component", "rule_engine").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate runs every enabled rule against the current value and bucket
// history, returning one event per fired rule. A rule that fires keeps
// firing on subsequent ticks while its condition holds; there is no
// suppression window here.
func (e *Engine) Evaluate(ruleSet []AlertRule, current decimal.Decimal, buckets []metering.TrendBucket) []AlertEvent {
	var events []AlertEvent
	for _, rule := range ruleSet {
		if !rule.Enabled {
			continue
		}

		switch rule.Kind {
		case KindThreshold:
			if current.GreaterThan(rule.ComparisonValue) {
				msg := fmt.Sprintf("recent usage %s exceeds threshold %s", current.String(), rule.ComparisonValue.String())
				events = append(events, e.fire(rule, SeverityWarning, msg))
			}
		case KindPatternAnomaly:
			change, ok := bucketChangePercent(buckets)
			if !ok {
				continue
			}
			if change.GreaterThan(rule.ComparisonValue) {
				msg := fmt.Sprintf("day-over-day usage changed %s%%, limit %s%%", change.StringFixed(1), rule.ComparisonValue.String())
				events = append(events, e.fire(rule, SeverityInfo, msg))
			}
		default:
			e.logger.Warn().Str("rule_id", rule.ID).Str("kind", string(rule.Kind)).Msg("skipping rule with unknown kind")
		}
	}
	return events
}

// fire is the single place a firing decision turns into an event, so a
// cooldown or debounce policy can wrap it without touching evaluation.
func (e *Engine) fire(rule AlertRule, severity Severity, message string) AlertEvent {
	event := AlertEvent{
		ID:        uuid.NewString(),
		RuleID:    rule.ID,
		Title:     rule.Name,
		Message:   message,
		Severity:  severity,
		Kind:      rule.Kind,
		CreatedAt: e.now(),
	}
	e.logger.Info().
		Str("rule_id", rule.ID).
		Str("severity", string(severity)).
		Str("message", message).
		Msg("alert fired")
	return event
}

// bucketChangePercent returns the absolute percentage change between the
// two most recent buckets. Not defined with fewer than two buckets or a
// zero previous total.
func bucketChangePercent(buckets []metering.TrendBucket) (decimal.Decimal, bool) {
	if len(buckets) < 2 {
		return decimal.Decimal{}, false
	}
	recent := buckets[len(buckets)-1].Total
	previous := buckets[len(buckets)-2].Total
	if previous.IsZero() {
		return decimal.Decimal{}, false
	}
	return recent.Sub(previous).Abs().Div(previous).Mul(decHundred), true
}
