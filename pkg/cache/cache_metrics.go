package cache

// Metrics is the instrumentation interface for cache operations.
//
// A Prometheus-backed implementation lives in pkg/metrics; passing nil to
// New selects the built-in no-op implementation so the cache has zero
// instrumentation overhead when metrics are disabled.
type Metrics interface {
	// Hit records a cache hit.
	Hit()

	// Miss records a cache miss (including expired entries).
	Miss()

	// Eviction records an LRU eviction.
	Eviction()
}

type noopMetrics struct{}

func (noopMetrics) Hit()      {}
func (noopMetrics) Miss()     {}
func (noopMetrics) Eviction() {}
