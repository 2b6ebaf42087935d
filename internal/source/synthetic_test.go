package source

import (
	"context"
	"testing"
	"time"
)

func TestSyntheticProducesValidRecords(t *testing.T) {
	gen := NewSynthetic(SyntheticOptions{
		Customers: 10,
		MinBatch:  1,
		MaxBatch:  3,
		MaxAmount: 100,
		Seed:      42,
	}, noopLogger())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for tick := 0; tick < 20; tick++ {
		records, err := gen.Fetch(context.Background(), now)
		if err != nil {
			t.Fatalf("synthetic fetch must not fail: %v", err)
		}
		if len(records) < 1 || len(records) > 3 {
			t.Fatalf("batch size out of bounds: %d", len(records))
		}
		for _, rec := range records {
			if err := rec.Validate(); err != nil {
				t.Fatalf("generated record invalid: %v (%+v)", err, rec)
			}
			if rec.Timestamp.After(now) {
				t.Fatalf("record stamped in the future: %s", rec.Timestamp)
			}
		}
	}
}

func TestSyntheticSeedReproducible(t *testing.T) {
	opts := SyntheticOptions{Customers: 5, MinBatch: 2, MaxBatch: 2, MaxAmount: 50, Seed: 7}
	now := time.Now()

	left, _ := NewSynthetic(opts, noopLogger()).Fetch(context.Background(), now)
	right, _ := NewSynthetic(opts, noopLogger()).Fetch(context.Background(), now)

	if len(left) != len(right) {
		t.Fatalf("batch sizes differ: %d vs %d", len(left), len(right))
	}
	for i := range left {
		if left[i].CustomerID != right[i].CustomerID || !left[i].Amount.Equal(right[i].Amount) {
			t.Fatalf("seeded runs diverge at %d: %+v vs %+v", i, left[i], right[i])
		}
	}
}
