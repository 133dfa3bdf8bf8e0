package websocket

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/input"
	"github.com/c360/surfacestream/metric"
	"github.com/c360/surfacestream/pkg/retry"
)

// Source is a reconnecting WebSocket client.
type Source struct {
	url     string
	headers http.Header
	dialer  *websocket.Dialer
	retry   retry.Config
	logger  *slog.Logger
	metrics *metric.Metrics
}

// Option configures a Source.
type Option func(*Source)

// WithHeader adds a handshake header.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		s.headers.Add(key, value)
	}
}

// WithRetry sets the reconnect policy.
func WithRetry(cfg retry.Config) Option {
	return func(s *Source) {
		s.retry = cfg
	}
}

// WithTLSConfig sets the TLS configuration used for wss:// URLs.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(s *Source) {
		s.dialer.TLSClientConfig = cfg
	}
}

// WithDialer replaces the default dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(s *Source) {
		if d != nil {
			s.dialer = d
		}
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

// WithMetrics records connection status and reconnects in the registry's
// core metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *Source) {
		if registry != nil {
			s.metrics = registry.CoreMetrics()
		}
	}
}

// New creates a Source for a ws:// or wss:// URL.
func New(url string, opts ...Option) *Source {
	s := &Source{
		url:     url,
		headers: http.Header{},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 45 * time.Second,
		},
		retry: retry.Config{
			MaxAttempts:  -1,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			AddJitter:    true,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements input.Source.
func (s *Source) Name() string {
	return s.url
}

// Run implements input.Source.
func (s *Source) Run(ctx context.Context, sink input.Sink) error {
	records := input.Records(sink)

	cfg := s.retry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		s.logger.Warn("websocket disconnected, reconnecting",
			"component", "input",
			"source", s.url,
			"attempt", attempt,
			"delay", delay,
			"error", err)
	}

	err := retry.Do(ctx, cfg, func(attempt int) error {
		if attempt > 1 {
			s.metrics.RecordSourceReconnect(s.url)
		}
		return s.session(ctx, records)
	})
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// session runs one connection until it closes.
func (s *Source) session(ctx context.Context, sink input.Sink) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.headers)
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return errors.WrapInvalid(
				fmt.Errorf("handshake rejected with status %d: %w", resp.StatusCode, err),
				"websocket", "session", "dial")
		}
		return errors.WrapTransient(err, "websocket", "session", "dial")
	}
	defer conn.Close()

	s.metrics.RecordSourceStatus(s.url, true)
	defer s.metrics.RecordSourceStatus(s.url, false)
	s.logger.Info("websocket connected", "component", "input", "source", s.url)

	// Unblock ReadMessage on cancellation
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return retry.NonRetryable(ctx.Err())
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Info("websocket closed by server", "component", "input", "source", s.url)
				return nil
			}
			return errors.WrapTransient(err, "websocket", "session", "read")
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		if err := sink.FeedBytes(data); err != nil {
			return retry.NonRetryable(errors.Wrap(err, "websocket", "session", "feed"))
		}
	}
}
