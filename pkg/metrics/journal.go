package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mcolletta/direx/pkg/journal"
)

// journalMetrics is the Prometheus implementation of the journal.Metrics
// interface.
type journalMetrics struct {
	recorded     *prometheus.CounterVec
	undos        *prometheus.CounterVec
	undoDuration prometheus.Histogram
	evictions    *prometheus.CounterVec
}

// NewJournalMetrics creates a Prometheus-backed journal.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// causes the journal to use its built-in no-op implementation.
func NewJournalMetrics() journal.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &journalMetrics{
		recorded: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "direx_journal_operations_total",
				Help: "Total number of journaled operations by kind",
			},
			[]string{"kind"},
		),
		undos: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "direx_journal_undos_total",
				Help: "Total number of undo attempts by kind and status",
			},
			[]string{"kind", "status"},
		),
		undoDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "direx_journal_undo_duration_seconds",
				Help: "Duration of undo execution in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.005, // 5ms
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.5,   // 500ms
					1,     // 1s
					5,     // 5s
				},
			},
		),
		evictions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "direx_journal_evictions_total",
				Help: "Total number of evicted operations by reason",
			},
			[]string{"reason"},
		),
	}
}

// OperationRecorded implements journal.Metrics.OperationRecorded
func (m *journalMetrics) OperationRecorded(kind string) {
	m.recorded.WithLabelValues(kind).Inc()
}

// UndoCompleted implements journal.Metrics.UndoCompleted
func (m *journalMetrics) UndoCompleted(kind string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.undos.WithLabelValues(kind, status).Inc()
	m.undoDuration.Observe(duration.Seconds())
}

// OperationEvicted implements journal.Metrics.OperationEvicted
func (m *journalMetrics) OperationEvicted(reason string) {
	m.evictions.WithLabelValues(reason).Inc()
}
