package metering

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBufferEvictsOldest(t *testing.T) {
	buf := NewBuffer(100)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 120; i++ {
		rec := UsageRecord{
			CustomerID: fmt.Sprintf("cust-%d", i),
			Type:       UsageData,
			Amount:     decimal.NewFromInt(int64(i)),
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := buf.Append(rec); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	if buf.Len() != 100 {
		t.Fatalf("expected 100 retained records, got %d", buf.Len())
	}

	snap := buf.Snapshot()
	if snap[0].CustomerID != "cust-20" {
		t.Fatalf("oldest 20 should be evicted, first is %s", snap[0].CustomerID)
	}
	if snap[len(snap)-1].CustomerID != "cust-119" {
		t.Fatalf("newest record missing, last is %s", snap[len(snap)-1].CustomerID)
	}
}

func TestBufferRejectsNegativeAmount(t *testing.T) {
	buf := NewBuffer(10)
	rec := UsageRecord{
		CustomerID: "cust-1",
		Type:       UsageVoice,
		Amount:     decimal.NewFromInt(-5),
		Timestamp:  time.Now(),
	}

	err := buf.Append(rec)
	if err == nil {
		t.Fatal("negative amount should be rejected")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("rejected record must not be retained, len=%d", buf.Len())
	}
}

func TestBufferRejectsZeroTimestamp(t *testing.T) {
	buf := NewBuffer(10)
	rec := UsageRecord{CustomerID: "cust-1", Type: UsageSMS, Amount: decimal.NewFromInt(1)}

	if err := buf.Append(rec); err == nil {
		t.Fatal("zero timestamp should be rejected")
	}
}

func TestBufferRecentTotal(t *testing.T) {
	buf := NewBuffer(100)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 15; i++ {
		rec := UsageRecord{
			CustomerID: "cust-1",
			Type:       UsageData,
			Amount:     decimal.NewFromInt(10),
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := buf.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if got := buf.RecentTotal(10); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected 100, got %s", got)
	}

	// Asking for more than the window holds sums everything.
	if got := buf.RecentTotal(50); !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected 150, got %s", got)
	}
}
