package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mcolletta/direx/pkg/query"
)

// queryMetrics is the Prometheus implementation of the query.Metrics
// interface.
type queryMetrics struct {
	searches       prometheus.Counter
	searchDuration prometheus.Histogram
	resultCount    prometheus.Histogram
}

// NewQueryMetrics creates a Prometheus-backed query.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// causes the engine to use its built-in no-op implementation.
func NewQueryMetrics() query.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &queryMetrics{
		searches: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "direx_query_searches_total",
				Help: "Total number of completed searches",
			},
		),
		searchDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "direx_query_search_duration_seconds",
				Help: "Duration of search execution in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1,      // 1s
				},
			},
		),
		resultCount: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "direx_query_results",
				Help:    "Number of results per search",
				Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
			},
		),
	}
}

// SearchCompleted implements query.Metrics.SearchCompleted
func (m *queryMetrics) SearchCompleted(duration time.Duration, results int) {
	m.searches.Inc()
	m.searchDuration.Observe(duration.Seconds())
	m.resultCount.Observe(float64(results))
}
