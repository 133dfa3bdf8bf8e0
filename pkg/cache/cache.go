// Package cache provides a bounded, thread-safe LRU keyed by string.
//
// It memoises parsed data paths: a feed writes the same few binding paths
// over and over, so parsing each one once pays off.
package cache

import (
	"sync"

	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/metric"
)

// Stats is a point-in-time copy of the cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// node is an entry in the recency list. The list is circular around a
// sentinel: sentinel.next is the most recent entry, sentinel.prev the least.
type node[V any] struct {
	key        string
	value      V
	prev, next *node[V]
}

// LRU evicts the least recently used entry once it holds more than max
// entries.
type LRU[V any] struct {
	mu       sync.Mutex
	max      int
	entries  map[string]*node[V]
	sentinel node[V]
	stats    Stats
	metrics  *cacheMetrics
}

// Option configures an LRU.
type Option func(*options)

type options struct {
	registry *metric.MetricsRegistry
	prefix   string
}

// WithMetrics exports hits, misses, evictions and size, labelled with
// component=prefix. Ignored when registry is nil or prefix is empty.
func WithMetrics(registry *metric.MetricsRegistry, prefix string) Option {
	return func(o *options) {
		o.registry = registry
		o.prefix = prefix
	}
}

// New creates an LRU holding at most max entries.
func New[V any](max int, opts ...Option) (*LRU[V], error) {
	if max <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "New", "max must be positive")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &LRU[V]{
		max:     max,
		entries: make(map[string]*node[V], max),
	}
	c.sentinel.next = &c.sentinel
	c.sentinel.prev = &c.sentinel

	if o.registry != nil && o.prefix != "" {
		m, err := newCacheMetrics(o.registry, o.prefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "cache", "New", "metrics registration")
		}
		c.metrics = m
	}
	return c, nil
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		c.metrics.miss()
		var zero V
		return zero, false
	}
	c.unlink(n)
	c.pushFront(n)
	c.stats.Hits++
	c.metrics.hit()
	return n.value, true
}

// Add stores value under key as the most recent entry and reports whether an
// older entry was evicted to make room.
func (c *LRU[V]) Add(key string, value V) (evicted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok {
		n.value = value
		c.unlink(n)
		c.pushFront(n)
		return false
	}

	n := &node[V]{key: key, value: value}
	c.entries[key] = n
	c.pushFront(n)

	if len(c.entries) > c.max {
		oldest := c.sentinel.prev
		c.unlink(oldest)
		delete(c.entries, oldest.key)
		c.stats.Evictions++
		c.metrics.evict()
		evicted = true
	}
	c.metrics.size(len(c.entries))
	return evicted
}

// Remove deletes key and reports whether it was present.
func (c *LRU[V]) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		return false
	}
	c.unlink(n)
	delete(c.entries, key)
	c.metrics.size(len(c.entries))
	return true
}

// Len returns the number of entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the keys, most recently used first.
func (c *LRU[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for n := c.sentinel.next; n != &c.sentinel; n = n.next {
		keys = append(keys, n.key)
	}
	return keys
}

// Stats returns a copy of the counters.
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.entries)
	return s
}

func (c *LRU[V]) pushFront(n *node[V]) {
	n.prev = &c.sentinel
	n.next = c.sentinel.next
	c.sentinel.next.prev = n
	c.sentinel.next = n
}

func (c *LRU[V]) unlink(n *node[V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
}
