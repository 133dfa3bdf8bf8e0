package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/surfacestream/metric"
)

// Pool runs a fixed number of goroutines over a bounded queue of T.
type Pool[T any] struct {
	workers   int
	queueSize int
	processor func(context.Context, T) error

	work    chan T
	metrics *Metrics
	wg      sync.WaitGroup

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool

	submitted atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	registry *metric.MetricsRegistry
	prefix   string
	logger   *slog.Logger
}

// Metrics holds the pool's Prometheus collectors.
type Metrics struct {
	queueDepth     prometheus.Gauge
	submitted      prometheus.Counter
	processed      prometheus.Counter
	failed         prometheus.Counter
	dropped        prometheus.Counter
	processingTime *prometheus.HistogramVec
}

// Option configures a Pool.
type Option[T any] func(*Pool[T])

// WithMetricsRegistry registers pool metrics named prefix_* with registry.
func WithMetricsRegistry[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(p *Pool[T]) {
		p.registry = registry
		p.prefix = prefix
	}
}

// WithLogger sets the logger used for setup warnings.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(p *Pool[T]) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPool creates a pool. Non-positive workers or queueSize fall back to 1
// and 64. It panics on a nil processor.
func NewPool[T any](workers, queueSize int, processor func(context.Context, T) error, opts ...Option[T]) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if processor == nil {
		panic(ErrNilProcessor)
	}

	p := &Pool[T]{
		workers:   workers,
		queueSize: queueSize,
		processor: processor,
		work:      make(chan T, queueSize),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry != nil && p.prefix != "" {
		p.metrics = newMetrics(p.registry, p.prefix, p.logger)
	}
	return p
}

// newMetrics registers the collectors. A collision is logged and leaves the
// collector unregistered but still counting.
func newMetrics(registry *metric.MetricsRegistry, prefix string, logger *slog.Logger) *Metrics {
	m := &Metrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "worker",
			Name:      prefix + "_queue_depth",
			Help:      "Items waiting in the worker pool queue",
		}),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "worker",
			Name:      prefix + "_submitted_total",
			Help:      "Items accepted by the worker pool",
		}),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "worker",
			Name:      prefix + "_processed_total",
			Help:      "Items processed by the worker pool",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "worker",
			Name:      prefix + "_failed_total",
			Help:      "Items whose processor returned an error",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "worker",
			Name:      prefix + "_dropped_total",
			Help:      "Items dropped because the queue was full",
		}),
		processingTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: "worker",
			Name:      prefix + "_processing_duration_seconds",
			Help:      "Time spent processing one item",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"status"}),
	}

	for name, c := range map[string]prometheus.Collector{
		"queue_depth":                 m.queueDepth,
		"submitted_total":             m.submitted,
		"processed_total":             m.processed,
		"failed_total":                m.failed,
		"dropped_total":               m.dropped,
		"processing_duration_seconds": m.processingTime,
	} {
		if err := registry.Register("worker_pool", prefix+"_"+name, c); err != nil {
			logger.Warn("metric registration failed",
				"component", "worker", "pool", prefix, "metric", name, "error", err)
		}
	}
	return m
}

// Submit enqueues an item without blocking.
func (p *Pool[T]) Submit(item T) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started {
		return ErrPoolNotStarted
	}
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.work <- item:
		p.submitted.Add(1)
		if p.metrics != nil {
			p.metrics.submitted.Inc()
			p.metrics.queueDepth.Set(float64(len(p.work)))
		}
		return nil
	default:
		p.dropped.Add(1)
		if p.metrics != nil {
			p.metrics.dropped.Inc()
		}
		return ErrQueueFull
	}
}

// Start launches the workers. They exit when ctx is done or Stop drains
// the queue.
func (p *Pool[T]) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
	p.started = true
	return nil
}

// Stop closes the queue and waits up to timeout for queued items to finish.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started || p.stopped {
		return nil
	}
	close(p.work)
	p.stopped = true

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Stats returns current pool statistics.
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		QueueDepth: len(p.work),
		Submitted:  p.submitted.Load(),
		Processed:  p.processed.Load(),
		Failed:     p.failed.Load(),
		Dropped:    p.dropped.Load(),
	}
}

// PoolStats represents worker pool statistics.
type PoolStats struct {
	Workers    int   `json:"workers"`
	QueueSize  int   `json:"queue_size"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
}

func (p *Pool[T]) run(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-p.work:
			if !ok {
				return
			}
			p.process(ctx, item)
		}
	}
}

func (p *Pool[T]) process(ctx context.Context, item T) {
	start := time.Now()
	err := p.processor(ctx, item)

	p.processed.Add(1)
	if err != nil {
		p.failed.Add(1)
	}
	if p.metrics == nil {
		return
	}
	p.metrics.processed.Inc()
	p.metrics.queueDepth.Set(float64(len(p.work)))
	status := "success"
	if err != nil {
		p.metrics.failed.Inc()
		status = "error"
	}
	p.metrics.processingTime.WithLabelValues(status).Observe(time.Since(start).Seconds())
}
