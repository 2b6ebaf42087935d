package source

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"usage-alerts/internal/metering"
)

// SyntheticOptions tune the generated feed.
type SyntheticOptions struct {
	// Customers is the size of the simulated customer pool.
	Customers int
	// MinBatch/MaxBatch bound how many records one tick produces.
	MinBatch int
	MaxBatch int
	// MaxAmount caps a single generated usage amount.
	MaxAmount float64
	// Seed fixes the generator for reproducible runs; 0 seeds from time.
	Seed int64
}

// Synthetic generates randomized usage records standing in for real
// telemetry.
type Synthetic struct {
	opts   SyntheticOptions
	logger zerolog.Logger
	rng    *rand.Rand
}

// usage type draw is weighted towards data, which dominates real feeds.
var syntheticTypes = []metering.UsageType{
	metering.UsageData,
	metering.UsageData,
	metering.UsageData,
	metering.UsageVoice,
	metering.UsageSMS,
	metering.UsageOther,
}

// NewSynthetic constructs the generator source.
func NewSynthetic(opts SyntheticOptions, logger zerolog.Logger) *Synthetic {
	if opts.Customers <= 0 {
		opts.Customers = 25
	}
	if opts.MinBatch <= 0 {
		opts.MinBatch = 1
	}
	if opts.MaxBatch < opts.MinBatch {
		opts.MaxBatch = opts.MinBatch + 2
	}
	if opts.MaxAmount <= 0 {
		opts.MaxAmount = 500
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Synthetic{
		opts:   opts,
		logger: logger.With().Str("component", "synthetic_source").Logger(),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Fetch produces a small randomized batch stamped inside the last tick
// interval. Never fails.
func (s *Synthetic) Fetch(ctx context.Context, now time.Time) ([]metering.UsageRecord, error) {
	count := s.opts.MinBatch + s.rng.Intn(s.opts.MaxBatch-s.opts.MinBatch+1)

	records := make([]metering.UsageRecord, 0, count)
	for i := 0; i < count; i++ {
		amount := decimal.NewFromFloat(s.rng.Float64() * s.opts.MaxAmount).Round(3)
		records = append(records, metering.UsageRecord{
			CustomerID: fmt.Sprintf("cust-%03d", s.rng.Intn(s.opts.Customers)+1),
			Type:       syntheticTypes[s.rng.Intn(len(syntheticTypes))],
			Amount:     amount,
			Timestamp:  now.Add(-time.Duration(s.rng.Intn(5000)) * time.Millisecond),
		})
	}

	s.logger.Debug().Int("count", count).Msg("generated synthetic records")
	return records, nil
}

var _ RecordSource = (*Synthetic)(nil)
