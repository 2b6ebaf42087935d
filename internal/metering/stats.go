package metering

import "github.com/shopspring/decimal"

var decHundred = decimal.NewFromInt(100)

// StatisticsSnapshot holds the scalar summaries derived from the current
// record window and its trend buckets. All fields are zero when there is
// no data; that is "no data", not an error.
type StatisticsSnapshot struct {
	TotalUsage          decimal.Decimal `json:"total_usage"`
	TotalEvents         int             `json:"total_events"`
	ActiveCustomers     int             `json:"active_customers"`
	AvgUsagePerCustomer decimal.Decimal `json:"avg_usage_per_customer"`
	PeakUsageHour       int             `json:"peak_usage_hour"`
	UsageGrowthPercent  decimal.Decimal `json:"usage_growth_percent"`
}

// Summarize derives a statistics snapshot from the record set and its
// aggregated buckets. Both inputs describe the same window; buckets are
// passed in so growth is computed against the same aggregation the
// caller already holds.
func Summarize(records []UsageRecord, buckets []TrendBucket) StatisticsSnapshot {
	snap := StatisticsSnapshot{}
	if len(records) == 0 {
		return snap
	}

	customers := make(map[string]struct{})
	hourTotals := make(map[int]decimal.Decimal)
	for _, rec := range records {
		snap.TotalUsage = snap.TotalUsage.Add(rec.Amount)
		customers[rec.CustomerID] = struct{}{}
		hour := rec.Timestamp.UTC().Hour()
		hourTotals[hour] = hourTotals[hour].Add(rec.Amount)
	}

	snap.TotalEvents = len(records)
	snap.ActiveCustomers = len(customers)
	if snap.ActiveCustomers > 0 {
		snap.AvgUsagePerCustomer = snap.TotalUsage.Div(decimal.NewFromInt(int64(snap.ActiveCustomers)))
	}
	snap.PeakUsageHour = peakHour(hourTotals)
	snap.UsageGrowthPercent = GrowthPercent(buckets)
	return snap
}

// peakHour picks the hour with the highest total across the whole
// window, ties broken by the lowest hour number.
func peakHour(totals map[int]decimal.Decimal) int {
	peak := 0
	best := decimal.Zero
	found := false
	for hour := 0; hour < 24; hour++ {
		total, ok := totals[hour]
		if !ok {
			continue
		}
		if !found || total.GreaterThan(best) {
			peak = hour
			best = total
			found = true
		}
	}
	return peak
}

// GrowthPercent compares the earliest and latest bucket totals:
// (last - first) / first * 100. Defined only with at least two buckets
// and a non-zero first total; otherwise 0.
func GrowthPercent(buckets []TrendBucket) decimal.Decimal {
	if len(buckets) < 2 {
		return decimal.Zero
	}
	first := buckets[0].Total
	last := buckets[len(buckets)-1].Total
	if first.IsZero() {
		return decimal.Zero
	}
	return last.Sub(first).Div(first).Mul(decHundred)
}
