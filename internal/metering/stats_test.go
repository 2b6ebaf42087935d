package metering

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSummarizeEmpty(t *testing.T) {
	snap := Summarize(nil, nil)
	if snap.TotalEvents != 0 || snap.ActiveCustomers != 0 {
		t.Fatalf("empty input should produce zero counts: %+v", snap)
	}
	if !snap.TotalUsage.IsZero() || !snap.AvgUsagePerCustomer.IsZero() || !snap.UsageGrowthPercent.IsZero() {
		t.Fatalf("empty input should produce zero totals: %+v", snap)
	}
}

func TestSummarizeBasics(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []UsageRecord{
		record("a", UsageData, 60, day.Add(9*time.Hour)),
		record("a", UsageVoice, 30, day.Add(9*time.Hour+30*time.Minute)),
		record("b", UsageData, 30, day.Add(21*time.Hour)),
	}

	snap := Summarize(records, AggregateTrends(records))

	if snap.TotalEvents != 3 {
		t.Fatalf("expected 3 events, got %d", snap.TotalEvents)
	}
	if snap.ActiveCustomers != 2 {
		t.Fatalf("expected 2 customers, got %d", snap.ActiveCustomers)
	}
	if !snap.TotalUsage.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("expected total 120, got %s", snap.TotalUsage)
	}
	if !snap.AvgUsagePerCustomer.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected average 60, got %s", snap.AvgUsagePerCustomer)
	}
	if snap.PeakUsageHour != 9 {
		t.Fatalf("expected peak hour 9, got %d", snap.PeakUsageHour)
	}
}

func TestPeakHourTieBreaksLow(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []UsageRecord{
		record("a", UsageData, 50, day.Add(20*time.Hour)),
		record("b", UsageData, 50, day.Add(4*time.Hour)),
	}

	snap := Summarize(records, nil)
	if snap.PeakUsageHour != 4 {
		t.Fatalf("tie should resolve to the lower hour, got %d", snap.PeakUsageHour)
	}
}

func TestGrowthPercent(t *testing.T) {
	mkBucket := func(day int, total int64) TrendBucket {
		return TrendBucket{
			Date:  time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC),
			Total: decimal.NewFromInt(total),
		}
	}

	growth := GrowthPercent([]TrendBucket{mkBucket(1, 100), mkBucket(2, 150)})
	if !growth.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected 50%% growth, got %s", growth)
	}

	if g := GrowthPercent([]TrendBucket{mkBucket(1, 0), mkBucket(2, 150)}); !g.IsZero() {
		t.Fatalf("zero first bucket must guard to 0, got %s", g)
	}
	if g := GrowthPercent([]TrendBucket{mkBucket(1, 100)}); !g.IsZero() {
		t.Fatalf("single bucket must yield 0, got %s", g)
	}
	if g := GrowthPercent(nil); !g.IsZero() {
		t.Fatalf("no buckets must yield 0, got %s", g)
	}
}
