// Package cache provides the engine's keyed TTL cache.
//
// Directory listings, page slices and per-entry metadata all sit behind
// instances of this cache, which combines TTL expiration, LRU bounding and
// load coalescing: concurrent loads of the same key share a single in-flight
// loader instead of issuing duplicate I/O.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/mcolletta/direx/internal/logger"
)

// Loader produces the value for a key on a cache miss.
type Loader[V any] func(ctx context.Context) (V, error)

// Config holds cache construction options.
type Config struct {
	// MaxEntries limits the cache size (LRU eviction)
	// 0 means unbounded.
	MaxEntries int

	// SweepInterval is how often expired entries are reclaimed in the
	// background. 0 disables the sweeper; expiry is then purely lazy.
	SweepInterval time.Duration
}

// Cache is a keyed TTL cache with LRU bounding and load coalescing.
//
// Keys are structured composite types (any comparable), never concatenated
// strings, so heterogeneous parameters cannot collide.
//
// Thread Safety:
// All operations are protected by an RWMutex; the in-flight map guarantees
// at most one concurrent loader per key.
type Cache[K comparable, V any] struct {
	maxEntries int
	metrics    Metrics

	mu      sync.RWMutex
	entries map[K]*entry[V]
	lruList *list.List

	flightMu sync.Mutex
	flights  map[K]*flight[V]

	stopCh chan struct{}
	doneCh chan struct{}
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
	lruNode   *list.Element
}

// flight is a single in-progress load shared by every concurrent caller.
type flight[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// New creates a cache. Pass nil metrics for no-op instrumentation.
func New[K comparable, V any](cfg Config, metrics Metrics) *Cache[K, V] {
	if metrics == nil {
		metrics = noopMetrics{}
	}

	c := &Cache[K, V]{
		maxEntries: cfg.MaxEntries,
		metrics:    metrics,
		entries:    make(map[K]*entry[V]),
		lruList:    list.New(),
		flights:    make(map[K]*flight[V]),
	}

	if cfg.SweepInterval > 0 {
		c.stopCh = make(chan struct{})
		c.doneCh = make(chan struct{})
		go c.sweeper(cfg.SweepInterval)
	}

	return c
}

// Get returns the cached value for key if present and not expired.
// Expired entries count as misses and are removed lazily.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.metrics.Miss()
		var zero V
		return zero, false
	}

	if time.Now().After(e.expiresAt) {
		c.removeLocked(key, e)
		c.metrics.Miss()
		var zero V
		return zero, false
	}

	c.lruList.MoveToFront(e.lruNode)
	c.metrics.Hit()
	return e.value, true
}

// Set stores value under key for ttl.
func (c *Cache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		existing.value = value
		existing.expiresAt = time.Now().Add(ttl)
		c.lruList.MoveToFront(existing.lruNode)
		return
	}

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}

	e := &entry[V]{value: value, expiresAt: time.Now().Add(ttl)}
	e.lruNode = c.lruList.PushFront(key)
	c.entries[key] = e
}

// GetOrLoad returns the cached value for key, or runs loader to produce it.
//
// If a load for key is already in flight, the caller waits for that load
// instead of starting another: the loader runs at most once per key at any
// instant and every waiter observes the same result. The in-flight
// registration is removed exactly once, after the load settles.
//
// A failed load is propagated to all waiters and is not cached; the next
// GetOrLoad for the key runs the loader again.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, loader Loader[V], ttl time.Duration) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.flightMu.Lock()
	if fl, ok := c.flights[key]; ok {
		c.flightMu.Unlock()
		return c.wait(ctx, fl)
	}

	fl := &flight[V]{done: make(chan struct{})}
	c.flights[key] = fl
	c.flightMu.Unlock()

	fl.val, fl.err = loader(ctx)
	if fl.err == nil {
		c.Set(key, fl.val, ttl)
	}

	// Settle: unregister exactly once, then wake the waiters.
	c.flightMu.Lock()
	delete(c.flights, key)
	c.flightMu.Unlock()
	close(fl.done)

	return fl.val, fl.err
}

// wait blocks until the shared load settles or the caller's context ends.
func (c *Cache[K, V]) wait(ctx context.Context, fl *flight[V]) (V, error) {
	select {
	case <-fl.done:
		return fl.val, fl.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Invalidate removes a single key.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.removeLocked(key, e)
	}
}

// InvalidateFunc removes every key matching the predicate. Used to drop a
// directory's page keys and per-entry keys on a change notification.
func (c *Cache[K, V]) InvalidateFunc(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if match(key) {
			c.removeLocked(key, e)
			removed++
		}
	}
	return removed
}

// Clear removes all entries (used when the watched root changes).
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*entry[V])
	c.lruList = list.New()
	logger.Debug("Cache cleared")
}

// Len returns the number of live entries, including any not yet swept.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes expired entries and returns how many were reclaimed.
func (c *Cache[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			c.removeLocked(key, e)
			removed++
		}
	}
	return removed
}

// Close stops the background sweeper, if one was started.
func (c *Cache[K, V]) Close() {
	if c.stopCh == nil {
		return
	}
	close(c.stopCh)
	<-c.doneCh
}

func (c *Cache[K, V]) sweeper(interval time.Duration) {
	defer close(c.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				logger.Debug("Cache sweep reclaimed %d expired entries", n)
			}
		case <-c.stopCh:
			return
		}
	}
}

// removeLocked drops an entry from both the map and the LRU list.
// Must be called with the write lock held.
func (c *Cache[K, V]) removeLocked(key K, e *entry[V]) {
	c.lruList.Remove(e.lruNode)
	delete(c.entries, key)
}

// evictOldestLocked removes the least recently used entry.
// Must be called with the write lock held.
func (c *Cache[K, V]) evictOldestLocked() {
	oldest := c.lruList.Back()
	if oldest == nil {
		return
	}

	key := oldest.Value.(K)
	if e, ok := c.entries[key]; ok {
		c.removeLocked(key, e)
		c.metrics.Eviction()
	}
}
