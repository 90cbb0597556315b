// Package metrics provides Prometheus metrics collection for direx components.
//
// All metrics are optional - if not initialized, components use no-op
// implementations that have zero overhead. This allows the engine to run
// with or without metrics collection enabled.
//
// Usage:
//
//	// Initialize global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	cacheMetrics := metrics.NewCacheMetrics()
//	queryMetrics := metrics.NewQueryMetrics()
//
//	// Or use nil for no-op behavior
//	c := cache.New[string, int](cfg, nil) // No metrics
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry for all direx metrics
	// Protected by registryOnce for write-once, read-many pattern
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// This must be called before creating any metrics instances. It's safe to
// call multiple times - subsequent calls are ignored.
//
// If not called, GetRegistry() will return nil and all metrics constructors
// will return no-op implementations.
//
// Thread safety:
// sync.Once provides the necessary memory barriers to ensure the registry
// write is visible to all subsequent reads.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry.
//
// Returns nil if InitRegistry() has not been called, indicating metrics
// are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if metrics collection is enabled.
//
// Metrics are enabled if InitRegistry() has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
