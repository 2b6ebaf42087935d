package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"usage-alerts/internal/alerting"
	"usage-alerts/internal/metering"
	"usage-alerts/internal/metrics"
	"usage-alerts/internal/rules"
	"usage-alerts/internal/source"
	"usage-alerts/internal/storage"
)

// Options wire one monitoring session. Each session owns its buffer,
// history, and rule set; nothing here is shared global state.
type Options struct {
	Source        source.RecordSource
	Rules         []rules.AlertRule
	BufferCap     int
	HistoryCap    int
	Notifier      alerting.Notifier
	RecordArchive storage.RecordArchive
	AlertArchive  storage.AlertArchive
}

// Monitor is the ingestion loop: per tick it pulls new records, rebuilds
// the trend/statistics state, evaluates the alert rules, and publishes
// an immutable snapshot for readers. All mutable state is owned by the
// single execution context driving Tick.
type Monitor struct {
	src      source.RecordSource
	ruleSet  []rules.AlertRule
	buffer   *metering.Buffer
	history  *rules.History
	engine   *rules.Engine
	notifier alerting.Notifier
	records  storage.RecordArchive
	alerts   storage.AlertArchive
	logger   zerolog.Logger

	latest atomic.Pointer[Snapshot]
}

// Snapshot is the published read model of one completed tick. Immutable;
// the HTTP layer and dashboard only ever see these.
type Snapshot struct {
	TakenAt    time.Time                   `json:"taken_at"`
	Records    []metering.UsageRecord      `json:"records"`
	Buckets    []metering.TrendBucket      `json:"buckets"`
	Statistics metering.StatisticsSnapshot `json:"statistics"`
	Alerts     []rules.AlertEvent          `json:"alerts"`
}

// New constructs a monitoring session.
func New(opts Options, logger zerolog.Logger) (*Monitor, error) {
	if opts.Source == nil {
		return nil, errors.New("monitor: record source is required")
	}
	for _, rule := range opts.Rules {
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("monitor: %w", err)
		}
	}

	return &Monitor{
		src:      opts.Source,
		ruleSet:  opts.Rules,
		buffer:   metering.NewBuffer(opts.BufferCap),
		history:  rules.NewHistory(opts.HistoryCap),
		engine:   rules.NewEngine(logger),
		notifier: opts.Notifier,
		records:  opts.RecordArchive,
		alerts:   opts.AlertArchive,
		logger:   logger.With().Str("component", "monitor").Logger(),
	}, nil
}

// Tick executes one ingestion cycle. A fetch failure abandons the tick
// before any state changes; every later stage is best-effort and never
// leaks an error into the next tick.
func (m *Monitor) Tick(ctx context.Context, tick time.Time) error {
	fetched, err := m.src.Fetch(ctx, tick)
	if err != nil {
		metrics.TickErrorsTotal.Inc()
		return fmt.Errorf("fetch usage records: %w", err)
	}

	accepted := m.ingest(fetched)

	records := m.buffer.Snapshot()
	buckets := metering.AggregateTrends(records)
	stats := metering.Summarize(records, buckets)

	fired := m.engine.Evaluate(m.ruleSet, m.buffer.RecentTotal(10), buckets)
	for _, event := range fired {
		m.history.Push(event)
		metrics.AlertsFired.WithLabelValues(string(event.Kind), string(event.Severity)).Inc()
		m.dispatch(ctx, event)
	}

	m.archiveRecords(ctx, accepted)

	metrics.TicksTotal.Inc()
	metrics.BufferSize.Set(float64(m.buffer.Len()))
	metrics.ActiveCustomers.Set(float64(stats.ActiveCustomers))

	m.publish(tick, records, buckets, stats)

	m.logger.Debug().
		Int("fetched", len(fetched)).
		Int("accepted", len(accepted)).
		Int("fired", len(fired)).
		Time("tick", tick).
		Msg("tick complete")
	return nil
}

// ingest validates and appends the fetched batch, dropping invalid
// records without failing the tick.
func (m *Monitor) ingest(fetched []metering.UsageRecord) []metering.UsageRecord {
	accepted := make([]metering.UsageRecord, 0, len(fetched))
	for _, rec := range fetched {
		if err := m.buffer.Append(rec); err != nil {
			metrics.RecordsRejected.Inc()
			m.logger.Warn().Err(err).Str("customer_id", rec.CustomerID).Msg("dropping invalid record")
			continue
		}
		metrics.RecordsIngested.Inc()
		accepted = append(accepted, rec)
	}
	return accepted
}

func (m *Monitor) dispatch(ctx context.Context, event rules.AlertEvent) {
	if m.alerts != nil {
		if err := m.alerts.InsertAlertEvent(ctx, event); err != nil {
			m.logger.Error().Err(err).Str("alert_id", event.ID).Msg("failed to archive alert")
		}
	}
	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, event); err != nil {
			m.logger.Error().Err(err).Str("alert_id", event.ID).Msg("failed to dispatch alert")
		}
	}
}

func (m *Monitor) archiveRecords(ctx context.Context, accepted []metering.UsageRecord) {
	if m.records == nil || len(accepted) == 0 {
		return
	}
	if err := m.records.InsertUsageRecords(ctx, accepted); err != nil {
		m.logger.Error().Err(err).Int("count", len(accepted)).Msg("failed to archive records")
	}
}

func (m *Monitor) publish(tick time.Time, records []metering.UsageRecord, buckets []metering.TrendBucket, stats metering.StatisticsSnapshot) {
	recordsCopy := make([]metering.UsageRecord, len(records))
	copy(recordsCopy, records)

	m.latest.Store(&Snapshot{
		TakenAt:    tick,
		Records:    recordsCopy,
		Buckets:    buckets,
		Statistics: stats,
		Alerts:     m.history.Recent(m.history.Len()),
	})
}

// Latest returns the snapshot published by the most recently completed
// tick, or nil before the first tick finishes.
func (m *Monitor) Latest() *Snapshot {
	return m.latest.Load()
}

// History exposes the alert history for the owning loop. External
// readers go through Latest.
func (m *Monitor) History() *rules.History {
	return m.history
}
