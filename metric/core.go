package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric exported by surfacestream.
const Namespace = "surfacestream"

// Metrics contains the runtime-level metrics shared by the stream parser,
// the store and the ingress sources.
type Metrics struct {
	MessagesReceived  *prometheus.CounterVec
	MessagesApplied   *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
	ApplyDuration     *prometheus.HistogramVec
	SnapshotVersion   prometheus.Gauge
	SurfacesActive    prometheus.Gauge
	SubscribersActive prometheus.Gauge
	SourceConnected   *prometheus.GaugeVec
	SourceReconnects  *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "messages",
				Name:      "received_total",
				Help:      "Total number of protocol messages decoded from a stream",
			},
			[]string{"source", "kind"},
		),

		MessagesApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "messages",
				Name:      "applied_total",
				Help:      "Total number of messages successfully applied to the store",
			},
			[]string{"kind"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of reported diagnostics",
			},
			[]string{"component", "kind"},
		),

		ApplyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "store",
				Name:      "apply_duration_seconds",
				Help:      "Time spent applying one message, listener notification included",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"kind"},
		),

		SnapshotVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "store",
				Name:      "snapshot_version",
				Help:      "Version of the most recently published snapshot",
			},
		),

		SurfacesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "store",
				Name:      "surfaces_active",
				Help:      "Number of surfaces in the current snapshot",
			},
		),

		SubscribersActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "store",
				Name:      "subscribers_active",
				Help:      "Number of registered snapshot listeners",
			},
		),

		SourceConnected: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "source",
				Name:      "connected",
				Help:      "Ingress source connection status (0=disconnected, 1=connected)",
			},
			[]string{"source"},
		),

		SourceReconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "source",
				Name:      "reconnects_total",
				Help:      "Total number of ingress reconnection attempts",
			},
			[]string{"source"},
		),
	}
}

func (c *Metrics) register(reg *prometheus.Registry) {
	reg.MustRegister(
		c.MessagesReceived,
		c.MessagesApplied,
		c.ErrorsTotal,
		c.ApplyDuration,
		c.SnapshotVersion,
		c.SurfacesActive,
		c.SubscribersActive,
		c.SourceConnected,
		c.SourceReconnects,
	)
}

// The Record methods are no-ops on a nil *Metrics so components can hold an
// optional reference.

// RecordMessageReceived increments the decoded message counter
func (c *Metrics) RecordMessageReceived(source, kind string) {
	if c == nil {
		return
	}
	c.MessagesReceived.WithLabelValues(source, kind).Inc()
}

// RecordMessageApplied increments the applied message counter and observes duration
func (c *Metrics) RecordMessageApplied(kind string, duration time.Duration) {
	if c == nil {
		return
	}
	c.MessagesApplied.WithLabelValues(kind).Inc()
	c.ApplyDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordError increments the diagnostic counter
func (c *Metrics) RecordError(component, kind string) {
	if c == nil {
		return
	}
	c.ErrorsTotal.WithLabelValues(component, kind).Inc()
}

// RecordSnapshot updates the snapshot gauges
func (c *Metrics) RecordSnapshot(version uint64, surfaces int) {
	if c == nil {
		return
	}
	c.SnapshotVersion.Set(float64(version))
	c.SurfacesActive.Set(float64(surfaces))
}

// RecordSubscribers updates the listener gauge
func (c *Metrics) RecordSubscribers(n int) {
	if c == nil {
		return
	}
	c.SubscribersActive.Set(float64(n))
}

// RecordSourceStatus updates the source connection gauge
func (c *Metrics) RecordSourceStatus(source string, connected bool) {
	if c == nil {
		return
	}
	value := 0.0
	if connected {
		value = 1.0
	}
	c.SourceConnected.WithLabelValues(source).Set(value)
}

// RecordSourceReconnect increments the reconnect counter for a source
func (c *Metrics) RecordSourceReconnect(source string) {
	if c == nil {
		return
	}
	c.SourceReconnects.WithLabelValues(source).Inc()
}
