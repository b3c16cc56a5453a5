package ttlcache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	createdAt time.Time
	expiresAt time.Time
}

func (e entry[V]) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// Stats reports lookup counters since construction or the last Clear.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// HitRate is hits/(hits+misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is an in-memory key/value store with per-entry expiry.
// Expiry is checked lazily on access; Sweep removes stale entries in bulk.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	stats   Stats
	now     func() time.Time
}

// Option customizes a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New constructs an empty cache.
func New[V any](opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		now:     o.now,
	}
}

// Set stores value under key for ttlSeconds. A non-positive TTL means
// "do not cache": nothing is stored and false is returned.
func (c *Cache[V]) Set(key string, value V, ttlSeconds int) bool {
	if ttlSeconds <= 0 {
		return false
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(time.Duration(ttlSeconds) * time.Second),
	}
	return true
}

// Get returns the fresh value stored under key. Every call counts as
// exactly one hit or one miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookupLocked(key)
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.stats.Hits++
	return e.value, true
}

// Has reports whether a fresh value exists under key without touching stats.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lookupLocked(key)
	return ok
}

// Delete removes key and reports whether an entry (fresh or not) was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Clear drops every entry and resets the counters.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
	c.stats = Stats{}
}

// Sweep removes all expired entries and returns how many were dropped.
func (c *Cache[V]) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of the hit/miss counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Len counts stored entries, including expired ones not yet evicted.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) lookupLocked(key string) (entry[V], bool) {
	e, ok := c.entries[key]
	if !ok {
		return entry[V]{}, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		return entry[V]{}, false
	}
	return e, true
}
