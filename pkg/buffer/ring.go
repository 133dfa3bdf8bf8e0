// Package buffer holds a bounded ring of recent items. When the ring is full
// either the oldest or the incoming item is dropped; pushes never block.
package buffer

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/metric"
)

// Policy selects what a full ring drops.
type Policy int

const (
	// DropOldest evicts the oldest item to make room.
	DropOldest Policy = iota
	// DropNewest discards the incoming item.
	DropNewest
)

func (p Policy) String() string {
	switch p {
	case DropOldest:
		return "drop_oldest"
	case DropNewest:
		return "drop_newest"
	}
	return "unknown"
}

// Counters is a point-in-time copy of the ring counters.
type Counters struct {
	Pushed  int64
	Popped  int64
	Dropped int64
}

// Option configures a Ring.
type Option[T any] func(*Ring[T])

// WithPolicy sets the overflow policy. The default is DropOldest.
func WithPolicy[T any](p Policy) Option[T] {
	return func(r *Ring[T]) { r.policy = p }
}

// WithOnDrop registers fn to be called, outside the lock, with every dropped item.
func WithOnDrop[T any](fn func(T)) Option[T] {
	return func(r *Ring[T]) { r.onDrop = fn }
}

// WithMetrics exports the drop count. A nil registry or empty name disables it.
func WithMetrics[T any](registry *metric.MetricsRegistry, name string) Option[T] {
	return func(r *Ring[T]) {
		if registry != nil && name != "" {
			r.registry, r.name = registry, name
		}
	}
}

// Ring is a fixed-capacity FIFO safe for concurrent use.
type Ring[T any] struct {
	mu    sync.Mutex
	slots []T
	start int
	n     int

	policy Policy
	onDrop func(T)

	registry *metric.MetricsRegistry
	name     string
	dropped  prometheus.Counter

	pushes atomic.Int64
	pops   atomic.Int64
	drops  atomic.Int64
}

// New returns a ring holding at most capacity items. Capacity below one is
// raised to one.
func New[T any](capacity int, opts ...Option[T]) (*Ring[T], error) {
	r := &Ring[T]{slots: make([]T, max(capacity, 1))}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	if r.registry != nil {
		r.dropped = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "buffer",
			Name:        "drops_total",
			Help:        "Items dropped because the ring was full",
			ConstLabels: prometheus.Labels{"component": r.name},
		})
		if err := r.registry.RegisterCounter(r.name, "buffer_drops", r.dropped); err != nil {
			return nil, errors.WrapTransient(err, "Ring", "New", "register drop counter")
		}
	}
	return r, nil
}

// Push appends item and reports whether something was dropped to make it fit.
func (r *Ring[T]) Push(item T) bool {
	r.mu.Lock()
	if r.n < len(r.slots) {
		r.slots[(r.start+r.n)%len(r.slots)] = item
		r.n++
		r.mu.Unlock()
		r.pushes.Add(1)
		return false
	}

	victim := item
	if r.policy == DropOldest {
		victim = r.slots[r.start]
		r.slots[r.start] = item
		r.start = (r.start + 1) % len(r.slots)
		r.pushes.Add(1)
	}
	r.mu.Unlock()

	r.drops.Add(1)
	if r.dropped != nil {
		r.dropped.Inc()
	}
	if r.onDrop != nil {
		r.onDrop(victim)
	}
	return true
}

// Pop removes and returns the oldest item.
func (r *Ring[T]) Pop() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pop()
}

func (r *Ring[T]) pop() (T, bool) {
	var zero T
	if r.n == 0 {
		return zero, false
	}
	item := r.slots[r.start]
	r.slots[r.start] = zero
	r.start = (r.start + 1) % len(r.slots)
	r.n--
	r.pops.Add(1)
	return item, true
}

// Drain removes up to limit items, oldest first.
func (r *Ring[T]) Drain(limit int) []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit = min(limit, r.n)
	if limit <= 0 {
		return nil
	}
	out := make([]T, 0, limit)
	for i := 0; i < limit; i++ {
		item, _ := r.pop()
		out = append(out, item)
	}
	return out
}

// Snapshot copies the held items, oldest first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]T, r.n)
	for i := range out {
		out[i] = r.slots[(r.start+i)%len(r.slots)]
	}
	return out
}

// Len is the number of held items.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Cap is the fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.slots)
}

// Reset drops every held item without counting them as overflow.
func (r *Ring[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.slots)
	r.start, r.n = 0, 0
}

// Counters returns the push, pop and drop totals.
func (r *Ring[T]) Counters() Counters {
	return Counters{
		Pushed:  r.pushes.Load(),
		Popped:  r.pops.Load(),
		Dropped: r.drops.Load(),
	}
}
