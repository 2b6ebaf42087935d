package metering

import "github.com/shopspring/decimal"

// DefaultBufferCap bounds the live record window.
const DefaultBufferCap = 100

// Buffer is the bounded, insertion-ordered window of live usage records.
// It is owned by a single ingestion loop; callers of Snapshot must not
// mutate the returned records.
type Buffer struct {
	records []UsageRecord
	cap     int
}

// NewBuffer constructs a buffer holding at most capacity records.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferCap
	}
	return &Buffer{records: make([]UsageRecord, 0, capacity), cap: capacity}
}

// Append validates and appends one record, evicting the oldest entries
// once the window exceeds its capacity.
func (b *Buffer) Append(rec UsageRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	b.records = append(b.records, rec)
	if overflow := len(b.records) - b.cap; overflow > 0 {
		b.records = b.records[overflow:]
	}
	return nil
}

// Snapshot returns the current window in insertion order.
func (b *Buffer) Snapshot() []UsageRecord {
	return b.records
}

// Len reports the number of records currently retained.
func (b *Buffer) Len() int {
	return len(b.records)
}

// RecentTotal sums the usage amounts of the n most recently appended
// records. Threshold rules evaluate against this value.
func (b *Buffer) RecentTotal(n int) decimal.Decimal {
	total := decimal.Zero
	start := len(b.records) - n
	if start < 0 {
		start = 0
	}
	for _, rec := range b.records[start:] {
		total = total.Add(rec.Amount)
	}
	return total
}
