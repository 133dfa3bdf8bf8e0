package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/surfacestream/metric"
)

// cacheMetrics mirrors Stats into Prometheus. Methods on a nil receiver do
// nothing.
type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	entries   prometheus.Gauge
}

func newCacheMetrics(registry *metric.MetricsRegistry, prefix string) (*cacheMetrics, error) {
	labels := prometheus.Labels{"component": prefix}
	m := &cacheMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace, Subsystem: "cache", Name: "hits_total",
			Help: "Cache lookups that found an entry", ConstLabels: labels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace, Subsystem: "cache", Name: "misses_total",
			Help: "Cache lookups that found nothing", ConstLabels: labels,
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace, Subsystem: "cache", Name: "evictions_total",
			Help: "Entries evicted to stay within the size bound", ConstLabels: labels,
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace, Subsystem: "cache", Name: "entries",
			Help: "Entries currently cached", ConstLabels: labels,
		}),
	}

	for name, c := range map[string]prometheus.Counter{
		"cache_hits":      m.hits,
		"cache_misses":    m.misses,
		"cache_evictions": m.evictions,
	} {
		if err := registry.RegisterCounter(prefix, name, c); err != nil {
			return nil, err
		}
	}
	if err := registry.RegisterGauge(prefix, "cache_entries", m.entries); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *cacheMetrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *cacheMetrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *cacheMetrics) evict() {
	if m != nil {
		m.evictions.Inc()
	}
}

func (m *cacheMetrics) size(n int) {
	if m != nil {
		m.entries.Set(float64(n))
	}
}
