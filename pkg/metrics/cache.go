package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mcolletta/direx/pkg/cache"
)

// cacheMetrics is the Prometheus implementation of the cache.Metrics
// interface. One instance is shared by all caches with the same name label.
type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
}

// NewCacheMetrics creates a Prometheus-backed cache.Metrics instance for
// the cache identified by name (e.g. "pages", "listings", "entries").
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// causes the cache to use its built-in no-op implementation.
func NewCacheMetrics(name string) cache.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()
	labels := prometheus.Labels{"cache": name}

	return &cacheMetrics{
		hits: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name:        "direx_cache_hits_total",
				Help:        "Total number of cache hits",
				ConstLabels: labels,
			},
		),
		misses: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name:        "direx_cache_misses_total",
				Help:        "Total number of cache misses, including expired entries",
				ConstLabels: labels,
			},
		),
		evictions: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name:        "direx_cache_evictions_total",
				Help:        "Total number of LRU evictions",
				ConstLabels: labels,
			},
		),
	}
}

// Hit implements cache.Metrics.Hit
func (m *cacheMetrics) Hit() {
	m.hits.Inc()
}

// Miss implements cache.Metrics.Miss
func (m *cacheMetrics) Miss() {
	m.misses.Inc()
}

// Eviction implements cache.Metrics.Eviction
func (m *cacheMetrics) Eviction() {
	m.evictions.Inc()
}
