package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360/surfacestream/errors"
)

// MetricsRegistry owns a Prometheus registry, the core surfacestream metrics
// and any component collectors registered under a service.metric key.
type MetricsRegistry struct {
	prom *prometheus.Registry
	core *Metrics

	mu    sync.Mutex
	byKey map[string]prometheus.Collector
}

// NewMetricsRegistry creates a registry holding the core metrics plus the Go
// runtime and process collectors.
func NewMetricsRegistry() *MetricsRegistry {
	r := &MetricsRegistry{
		prom:  prometheus.NewRegistry(),
		core:  NewMetrics(),
		byKey: make(map[string]prometheus.Collector),
	}
	r.core.register(r.prom)
	r.prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// PrometheusRegistry returns the underlying Prometheus registry.
func (r *MetricsRegistry) PrometheusRegistry() *prometheus.Registry {
	return r.prom
}

// CoreMetrics returns the metrics shared by parser, store and sources.
func (r *MetricsRegistry) CoreMetrics() *Metrics {
	return r.core
}

// Register adds collector under service.name. A repeated key, or a
// collector Prometheus already knows, is an invalid error.
func (r *MetricsRegistry) Register(service, name string, collector prometheus.Collector) error {
	key := service + "." + name

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byKey[key]; ok {
		return errors.WrapInvalid(fmt.Errorf("metric %s already registered", key),
			"MetricsRegistry", "Register", "duplicate metric")
	}
	if err := r.prom.Register(collector); err != nil {
		var dup prometheus.AlreadyRegisteredError
		if stderrors.As(err, &dup) {
			return errors.WrapInvalid(err, "MetricsRegistry", "Register", "prometheus conflict for "+key)
		}
		return errors.WrapFatal(err, "MetricsRegistry", "Register", "register "+key)
	}
	r.byKey[key] = collector
	return nil
}

// RegisterCounter registers a counter.
func (r *MetricsRegistry) RegisterCounter(service, name string, c prometheus.Counter) error {
	return r.Register(service, name, c)
}

// RegisterGauge registers a gauge.
func (r *MetricsRegistry) RegisterGauge(service, name string, g prometheus.Gauge) error {
	return r.Register(service, name, g)
}

// RegisterCounterVec registers a counter vector.
func (r *MetricsRegistry) RegisterCounterVec(service, name string, v *prometheus.CounterVec) error {
	return r.Register(service, name, v)
}

// RegisterHistogramVec registers a histogram vector.
func (r *MetricsRegistry) RegisterHistogramVec(service, name string, v *prometheus.HistogramVec) error {
	return r.Register(service, name, v)
}

// Unregister removes service.name and reports whether it was registered.
func (r *MetricsRegistry) Unregister(service, name string) bool {
	key := service + "." + name

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byKey[key]
	if !ok || !r.prom.Unregister(c) {
		return false
	}
	delete(r.byKey, key)
	return true
}
