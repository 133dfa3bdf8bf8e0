package udp

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/input"
	"github.com/c360/surfacestream/metric"
	"github.com/c360/surfacestream/pkg/retry"
)

// MaxDatagramSize is the largest payload a UDP datagram can carry.
const MaxDatagramSize = 65535

// pollInterval bounds how long a read blocks before the loop rechecks ctx.
const pollInterval = 100 * time.Millisecond

// Metrics holds Prometheus metrics for a UDP source
type Metrics struct {
	packetsReceived prometheus.Counter
	bytesReceived   prometheus.Counter
	socketErrors    prometheus.Counter
	lastActivity    prometheus.Gauge
}

// newMetrics creates and registers UDP source metrics.
// A nil registry yields nil metrics.
func newMetrics(registry *metric.MetricsRegistry, port int) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		packetsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surfacestream",
			Subsystem: "udp",
			Name:      "packets_received_total",
			Help:      "Total UDP packets received",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surfacestream",
			Subsystem: "udp",
			Name:      "bytes_received_total",
			Help:      "Total bytes received from UDP",
		}),
		socketErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surfacestream",
			Subsystem: "udp",
			Name:      "socket_errors_total",
			Help:      "Socket read errors encountered",
		}),
		lastActivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "surfacestream",
			Subsystem: "udp",
			Name:      "last_activity_timestamp",
			Help:      "Unix timestamp of last received packet",
		}),
	}

	serviceName := fmt.Sprintf("udp_%d", port)
	_ = registry.RegisterCounter(serviceName, "packets_received", m.packetsReceived)
	_ = registry.RegisterCounter(serviceName, "bytes_received", m.bytesReceived)
	_ = registry.RegisterCounter(serviceName, "socket_errors", m.socketErrors)
	_ = registry.RegisterGauge(serviceName, "last_activity", m.lastActivity)
	return m
}

func (m *Metrics) received(n int) {
	if m == nil {
		return
	}
	m.packetsReceived.Inc()
	m.bytesReceived.Add(float64(n))
	m.lastActivity.Set(float64(time.Now().Unix()))
}

func (m *Metrics) socketError() {
	if m == nil {
		return
	}
	m.socketErrors.Inc()
}

// Source listens on a UDP port and feeds every datagram as one record.
//
// Datagrams may be lost or reordered by the network. Since the protocol is
// order sensitive, UDP suits local, lossless links such as loopback.
type Source struct {
	bind     string
	port     int
	retry    retry.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	metrics  *Metrics
	core     *metric.Metrics

	addr     atomic.Pointer[net.UDPAddr]
	received atomic.Int64
	readErrs atomic.Int64
}

// Option configures a Source.
type Option func(*Source)

// WithRetry sets the bind retry policy.
func WithRetry(cfg retry.Config) Option {
	return func(s *Source) {
		s.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics registers the UDP packet metrics and records source status.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *Source) {
		s.registry = registry
	}
}

// New creates a Source bound to bind:port. Port 0 picks a free port; use
// Addr once Run has bound the socket.
func New(bind string, port int, opts ...Option) *Source {
	s := &Source{
		bind: bind,
		port: port,
		retry: retry.Config{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2.0,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry != nil {
		s.metrics = newMetrics(s.registry, port)
		s.core = s.registry.CoreMetrics()
	}
	return s
}

// Name implements input.Source.
func (s *Source) Name() string {
	return "udp:" + net.JoinHostPort(s.bind, strconv.Itoa(s.port))
}

// Addr returns the bound address, or nil before the socket is bound.
func (s *Source) Addr() *net.UDPAddr {
	return s.addr.Load()
}

// Received returns the number of datagrams fed to the sink.
func (s *Source) Received() int64 {
	return s.received.Load()
}

// Run implements input.Source. It returns ctx.Err() once cancelled.
func (s *Source) Run(ctx context.Context, sink input.Sink) error {
	conn, err := retry.DoWithResult(ctx, s.retry, func(int) (*net.UDPConn, error) {
		return s.bindSocket()
	})
	if err != nil {
		return errors.WrapTransient(err, "udp", "Run", "socket binding")
	}
	defer conn.Close()

	s.addr.Store(conn.LocalAddr().(*net.UDPAddr))
	defer s.addr.Store(nil)

	s.core.RecordSourceStatus(s.Name(), true)
	defer s.core.RecordSourceStatus(s.Name(), false)
	s.logger.Info("udp listening", "component", "input", "addr", conn.LocalAddr().String())

	return s.readLoop(ctx, conn, input.Records(sink))
}

func (s *Source) bindSocket() (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(s.bind, strconv.Itoa(s.port)))
	if err != nil {
		return nil, retry.NonRetryable(errors.WrapInvalid(err, "udp", "bindSocket", "resolve address"))
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP port %d: %w", s.port, err)
	}

	// Bursts arrive faster than the parser drains them; a larger OS buffer
	// avoids kernel drops.
	const socketBufferSize = 2 * 1024 * 1024
	if err := conn.SetReadBuffer(socketBufferSize); err != nil {
		s.logger.Warn("could not set UDP buffer size",
			"component", "input",
			"buffer_size", socketBufferSize,
			"error", err)
	}
	return conn, nil
}

func (s *Source) readLoop(ctx context.Context, conn *net.UDPConn, sink input.Sink) error {
	buf := make([]byte, MaxDatagramSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Short deadlines let the loop observe cancellation.
		_ = conn.SetReadDeadline(time.Now().Add(pollInterval))

		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if stderrors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.readErrs.Add(1)
			s.metrics.socketError()
			if !errors.IsTransient(err) {
				return errors.WrapFatal(err, "udp", "readLoop", "read datagram")
			}
			s.logger.Warn("udp read failed", "component", "input", "error", err)
			continue
		}

		s.received.Add(1)
		s.metrics.received(n)

		// Sinks may retain the slice, so hand over a copy.
		data := make([]byte, n)
		copy(data, buf[:n])
		if err := sink.FeedBytes(data); err != nil {
			return errors.Wrap(err, "udp", "readLoop", "feed")
		}
	}
}
