// Package metrics exports the monitoring loop's own operational
// counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicksTotal counts completed ingestion ticks.
	TicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "usagewatcher_ticks_total",
			Help: "Total number of ingestion ticks executed",
		},
	)

	// TickErrorsTotal counts ticks abandoned on fetch failure.
	TickErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "usagewatcher_tick_errors_total",
			Help: "Total number of ticks that failed to obtain new data",
		},
	)

	// RecordsIngested counts records accepted into the live buffer.
	RecordsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "usagewatcher_records_ingested_total",
			Help: "Total number of usage records ingested",
		},
	)

	// RecordsRejected counts records dropped by validation.
	RecordsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "usagewatcher_records_rejected_total",
			Help: "Total number of usage records rejected at ingestion",
		},
	)

	// AlertsFired counts emitted alerts by rule kind.
	AlertsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usagewatcher_alerts_fired_total",
			Help: "Total number of alerts fired",
		},
		[]string{"kind", "severity"},
	)

	// BufferSize tracks the live record window size.
	BufferSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "usagewatcher_buffer_size",
			Help: "Number of records currently in the live buffer",
		},
	)

	// ActiveCustomers mirrors the latest statistics snapshot.
	ActiveCustomers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "usagewatcher_active_customers",
			Help: "Distinct customers in the live window",
		},
	)
)
