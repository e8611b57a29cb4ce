// Package cache memoizes poll results for a bounded time so a fast polling
// loop does not turn into bus traffic.
package cache

import (
	"sync"
	"time"
)

// Clock supplies the current time. Tests inject a fake one.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Entry is one memoized value. Entries are replaced, never mutated.
type Entry[V any] struct {
	Value   V
	Created time.Time
	TTL     time.Duration
}

// Live reports whether the entry is still valid at now.
func (e Entry[V]) Live(now time.Time) bool {
	return now.Before(e.Created.Add(e.TTL))
}

// Stats counts lookups.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// Cache is a TTL memo table. Compute functions run outside the internal
// lock, so a slow bus read never blocks lookups for other keys.
type Cache[K comparable, V any] struct {
	ttl   time.Duration
	clock Clock

	mu      sync.Mutex
	entries map[K]Entry[V]
	stats   Stats
}

// New returns a cache whose entries live for ttl.
func New[K comparable, V any](ttl time.Duration, clock Clock) *Cache[K, V] {
	if clock == nil {
		clock = SystemClock
	}
	return &Cache[K, V]{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[K]Entry[V]),
	}
}

// Get returns a live entry for key. Expired entries are dropped.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && e.Live(now) {
		c.stats.Hits++
		return e.Value, true
	}
	if ok {
		delete(c.entries, key)
	}
	c.stats.Misses++
	var zero V
	return zero, false
}

// Put stores value under key with a fresh expiry.
func (c *Cache[K, V]) Put(key K, value V) {
	now := c.clock.Now()

	c.mu.Lock()
	c.entries[key] = Entry[V]{Value: value, Created: now, TTL: c.ttl}
	c.mu.Unlock()
}

// GetOrCompute returns the live value for key, or runs compute once and
// stores its result. A failed compute is never stored, so the next call
// retries immediately. The bool result reports a cache hit.
func (c *Cache[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, false, err
	}
	c.Put(key, v)
	return v, false, nil
}

// Invalidate drops the entry for key.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateFunc drops every entry whose key matches.
func (c *Cache[K, V]) InvalidateFunc(match func(K) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if match(k) {
			delete(c.entries, k)
		}
	}
}

// Purge drops expired entries and returns how many remain.
func (c *Cache[K, V]) Purge() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if !e.Live(now) {
			delete(c.entries, k)
		}
	}
	return len(c.entries)
}

// Stats returns the hit/miss counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
