package metering

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TrendBucket aggregates one calendar day of usage, broken down by type
// and by hour of day.
type TrendBucket struct {
	Date   time.Time                     `json:"date"`
	Total  decimal.Decimal               `json:"total"`
	ByType map[UsageType]decimal.Decimal `json:"by_type"`
	ByHour map[int]decimal.Decimal       `json:"by_hour"`
}

// AggregateTrends groups records into per-day buckets ordered ascending
// by date. Grouping uses the record's own timestamp (UTC), not ingestion
// time. The record set is always small enough that full recomputation is
// cheaper than maintaining incremental state.
func AggregateTrends(records []UsageRecord) []TrendBucket {
	if len(records) == 0 {
		return nil
	}

	byDay := make(map[time.Time]*TrendBucket)
	for _, rec := range records {
		ts := rec.Timestamp.UTC()
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)

		bucket, ok := byDay[day]
		if !ok {
			bucket = &TrendBucket{
				Date:   day,
				ByType: make(map[UsageType]decimal.Decimal),
				ByHour: make(map[int]decimal.Decimal),
			}
			byDay[day] = bucket
		}

		bucket.Total = bucket.Total.Add(rec.Amount)
		bucket.ByType[rec.Type] = bucket.ByType[rec.Type].Add(rec.Amount)
		bucket.ByHour[ts.Hour()] = bucket.ByHour[ts.Hour()].Add(rec.Amount)
	}

	buckets := make([]TrendBucket, 0, len(byDay))
	for _, bucket := range byDay {
		buckets = append(buckets, *bucket)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Date.Before(buckets[j].Date)
	})
	return buckets
}
