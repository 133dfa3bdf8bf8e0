// Package httpstream reads a JSON-Lines feed from a streaming HTTP response.
package httpstream

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/input"
	"github.com/c360/surfacestream/metric"
	"github.com/c360/surfacestream/pkg/retry"
)

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 32 << 10

// Source issues a GET request and streams the response body to a sink.
// Establishing the response is retried; a body that breaks off midway is not,
// since the feed cannot be resumed.
type Source struct {
	url       string
	client    *http.Client
	headers   http.Header
	chunkSize int
	tls       *tls.Config
	retry     retry.Config
	logger    *slog.Logger
	metrics   *metric.Metrics
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option {
	return func(s *Source) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTLSConfig sets the TLS configuration of the default transport. It has
// no effect on a client given with WithClient.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(s *Source) {
		s.tls = cfg
	}
}

// WithHeader adds a request header.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		s.headers.Add(key, value)
	}
}

// WithChunkSize sets the read size.
func WithChunkSize(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithRetry sets the connect retry policy.
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

// WithMetrics records connection status in the registry's core metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *Source) {
		if registry != nil {
			s.metrics = registry.CoreMetrics()
		}
	}
}

// New creates a Source for url.
func New(url string, opts ...Option) *Source {
	s := &Source{
		url:       url,
		client:    http.DefaultClient,
		headers:   http.Header{},
		chunkSize: DefaultChunkSize,
		retry:     retry.DefaultConfig(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tls != nil && s.client == http.DefaultClient {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = s.tls
		s.client = &http.Client{Transport: transport}
	}
	return s
}

// Name implements input.Source.
func (s *Source) Name() string {
	return s.url
}

// Run implements input.Source. It returns nil when the body ends.
func (s *Source) Run(ctx context.Context, sink input.Sink) error {
	resp, err := retry.DoWithResult(ctx, s.retry, func(attempt int) (*http.Response, error) {
		if attempt > 1 {
			s.metrics.RecordSourceReconnect(s.Name())
		}
		return s.open(ctx)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	s.metrics.RecordSourceStatus(s.Name(), true)
	defer s.metrics.RecordSourceStatus(s.Name(), false)
	s.logger.Info("stream connected", "component", "input", "source", s.Name(), "status", resp.StatusCode)

	buf := make([]byte, s.chunkSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if ferr := sink.FeedBytes(buf[:n]); ferr != nil {
				return errors.Wrap(ferr, "httpstream", "Run", "feed")
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.WrapTransient(err, "httpstream", "Run", "read body")
		}
	}
}

func (s *Source) open(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, retry.NonRetryable(errors.WrapInvalid(err, "httpstream", "open", "build request"))
	}
	req.Header = s.headers.Clone()
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/jsonl, application/x-ndjson")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.NonRetryable(ctx.Err())
		}
		return nil, errors.WrapTransient(err, "httpstream", "open", "request")
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		statusErr := fmt.Errorf("unexpected status %d from %s", resp.StatusCode, s.url)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, errors.WrapTransient(statusErr, "httpstream", "open", "request")
		}
		return nil, errors.WrapInvalid(statusErr, "httpstream", "open", "request")
	}
	return resp, nil
}
