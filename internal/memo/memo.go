// Package memo provides an explicit, injectable memoization cache.
//
// A Cache is owned by whoever constructs it (a session, a generator, a test);
// there is no package-level registry. Entries stay until they are deleted,
// cleared, or rejected by the cache's validity predicate on lookup.
package memo

import (
	"sync"
	"time"
)

// Entry is a cached value with the time it was stored.
type Entry[V any] struct {
	Value    V
	StoredAt time.Time
}

// ValidFunc decides whether a cached entry may still be served.
type ValidFunc[K comparable, V any] func(key K, entry Entry[V]) bool

// Stats counts cache lookups.
type Stats struct {
	Hits   int
	Misses int
	Stale  int
}

// Cache is a mutex-guarded map with a pluggable validity predicate.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]Entry[V]
	valid ValidFunc[K, V]
	now   func() time.Time
	stats Stats
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithValidator installs a predicate consulted on every Get.
// Entries it rejects are dropped and reported as misses.
func WithValidator[K comparable, V any](fn ValidFunc[K, V]) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.valid = fn
	}
}

// WithClock overrides the time source used for Entry.StoredAt.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.now = now
	}
}

// New creates an empty cache. Without a validator every entry stays valid.
func New[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		items: make(map[K]Entry[V]),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key if present and still valid.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	if c.valid != nil && !c.valid(key, e) {
		delete(c.items, key)
		c.stats.Stale++
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.stats.Hits++
	return e.Value, true
}

// Put stores val under key, replacing any previous entry.
func (c *Cache[K, V]) Put(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = Entry[V]{Value: val, StoredAt: c.now()}
}

// GetOrCompute returns the cached value or computes it. The computed value is
// stored only when keep reports true, so failures can bypass the cache.
// The lock is not held while compute runs.
func (c *Cache[K, V]) GetOrCompute(key K, compute func() V, keep func(V) bool) (V, bool) {
	if v, ok := c.Get(key); ok {
		return v, true
	}
	v := compute()
	if keep == nil || keep(v) {
		c.Put(key, v)
	}
	return v, false
}

// Delete removes the given keys.
func (c *Cache[K, V]) Delete(keys ...K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]Entry[V])
}

// Len returns the number of stored entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns the stored keys in no particular order.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]K, 0, len(c.items))
	for k := range c.items {
		out = append(out, k)
	}
	return out
}

// Stats returns a snapshot of lookup counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
