package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"usage-alerts/internal/metering"
	"usage-alerts/internal/rules"
)

type stubSource struct {
	batches [][]metering.UsageRecord
	err     error
	calls   int
}

func (s *stubSource) Fetch(ctx context.Context, now time.Time) ([]metering.UsageRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.calls >= len(s.batches) {
		return nil, nil
	}
	batch := s.batches[s.calls]
	s.calls++
	return batch, nil
}

type captureNotifier struct {
	events []rules.AlertEvent
}

func (c *captureNotifier) Notify(ctx context.Context, event rules.AlertEvent) error {
	c.events = append(c.events, event)
	return nil
}

func rec(customer string, amount int64, ts time.Time) metering.UsageRecord {
	return metering.UsageRecord{
		CustomerID: customer,
		Type:       metering.UsageData,
		Amount:     decimal.NewFromInt(amount),
		Timestamp:  ts,
	}
}

func TestTickFiresThresholdAndPublishes(t *testing.T) {
	tick := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &stubSource{batches: [][]metering.UsageRecord{{
		rec("a", 600, tick.Add(-2*time.Second)),
		rec("b", 700, tick.Add(-time.Second)),
	}}}
	sink := &captureNotifier{}

	mon, err := New(Options{
		Source: src,
		Rules: []rules.AlertRule{{
			ID:              "r-1",
			Name:            "High recent usage",
			Kind:            rules.KindThreshold,
			ComparisonValue: decimal.NewFromInt(1000),
			Enabled:         true,
		}},
		Notifier: sink,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}

	if err := mon.Tick(context.Background(), tick); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if len(sink.events) != 1 {
		t.Fatalf("expected one notified alert, got %d", len(sink.events))
	}
	if mon.History().Len() != 1 {
		t.Fatalf("history should hold the fired alert, got %d", mon.History().Len())
	}

	snap := mon.Latest()
	if snap == nil {
		t.Fatal("snapshot must be published after a tick")
	}
	if snap.Statistics.TotalEvents != 2 || snap.Statistics.ActiveCustomers != 2 {
		t.Fatalf("snapshot statistics wrong: %+v", snap.Statistics)
	}
	if len(snap.Alerts) != 1 || snap.Alerts[0].RuleID != "r-1" {
		t.Fatalf("snapshot alerts wrong: %+v", snap.Alerts)
	}
	if !snap.TakenAt.Equal(tick) {
		t.Fatalf("snapshot stamped wrong: %s", snap.TakenAt)
	}
}

func TestTickRefiresWhileConditionHolds(t *testing.T) {
	tick := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &stubSource{batches: [][]metering.UsageRecord{
		{rec("a", 2000, tick)},
		{rec("a", 10, tick.Add(5 * time.Second))},
	}}

	mon, err := New(Options{
		Source: src,
		Rules: []rules.AlertRule{{
			ID:              "r-1",
			Name:            "High recent usage",
			Kind:            rules.KindThreshold,
			ComparisonValue: decimal.NewFromInt(1000),
			Enabled:         true,
		}},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}

	_ = mon.Tick(context.Background(), tick)
	_ = mon.Tick(context.Background(), tick.Add(5*time.Second))

	// The window still sums above the threshold on the second tick, so
	// the rule fires again: no debounce.
	if mon.History().Len() != 2 {
		t.Fatalf("expected 2 fired alerts, got %d", mon.History().Len())
	}
}

func TestTickFetchErrorLeavesStateUntouched(t *testing.T) {
	tick := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	good := &stubSource{batches: [][]metering.UsageRecord{{rec("a", 5, tick)}}}

	mon, err := New(Options{Source: good}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	if err := mon.Tick(context.Background(), tick); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	before := mon.Latest()

	mon.src = &stubSource{err: errors.New("api down")}
	if err := mon.Tick(context.Background(), tick.Add(5*time.Second)); err == nil {
		t.Fatal("fetch failure should surface as a tick error")
	}

	after := mon.Latest()
	if after != before {
		t.Fatal("failed tick must not publish a new snapshot")
	}
}

func TestTickDropsInvalidRecords(t *testing.T) {
	tick := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	batch := []metering.UsageRecord{
		rec("a", 5, tick),
		{CustomerID: "b", Type: metering.UsageData, Amount: decimal.NewFromInt(-1), Timestamp: tick},
		{CustomerID: "c", Type: metering.UsageData, Amount: decimal.NewFromInt(1)},
	}
	src := &stubSource{batches: [][]metering.UsageRecord{batch}}

	mon, err := New(Options{Source: src}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	if err := mon.Tick(context.Background(), tick); err != nil {
		t.Fatalf("tick should survive invalid records: %v", err)
	}

	snap := mon.Latest()
	if len(snap.Records) != 1 || snap.Records[0].CustomerID != "a" {
		t.Fatalf("only the valid record should survive: %+v", snap.Records)
	}
}

func TestNewRejectsInvalidRule(t *testing.T) {
	_, err := New(Options{
		Source: &stubSource{},
		Rules: []rules.AlertRule{{
			ID:              "r-bad",
			Kind:            rules.KindThreshold,
			ComparisonValue: decimal.NewFromInt(-1),
		}},
	}, zerolog.Nop())
	if err == nil {
		t.Fatal("negative comparison_value should be rejected at construction")
	}
}
