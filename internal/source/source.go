package source

import (
	"context"
	"time"

	"usage-alerts/internal/metering"
)

// RecordSource supplies new usage records for one ingestion tick. The
// monitoring loop depends only on this interface; live fetch and
// synthetic generation are interchangeable behind it.
type RecordSource interface {
	Fetch(ctx context.Context, now time.Time) ([]metering.UsageRecord, error)
}

// Customer is the minimal customer projection returned by the platform
// API. Used for display names only, never for statistics.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RangeFilter narrows a historical record query.
type RangeFilter struct {
	CustomerID string
	Start      time.Time
	End        time.Time
}
