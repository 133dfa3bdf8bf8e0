package nats

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	gonats "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/input"
	"github.com/c360/surfacestream/metric"
)

const pendingMessages = 256

// Source consumes one subject, either live or replayed from a stream.
type Source struct {
	url     string
	subject string
	stream  string
	conn    *gonats.Conn
	tls     *tls.Config
	name    string
	logger  *slog.Logger
	metrics *metric.Metrics
}

// Option configures a Source.
type Option func(*Source)

// WithConn uses an existing connection. The source does not close it.
func WithConn(conn *gonats.Conn) Option {
	return func(s *Source) {
		s.conn = conn
	}
}

// WithStream replays the named JetStream stream instead of subscribing live.
func WithStream(name string) Option {
	return func(s *Source) {
		s.stream = name
	}
}

// WithTLSConfig secures the connection the source opens.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(s *Source) {
		s.tls = cfg
	}
}

// WithClientName sets the connection name reported to the server.
func WithClientName(name string) Option {
	return func(s *Source) {
		if name != "" {
			s.name = name
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

// WithMetrics records connection status and reconnects.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *Source) {
		if registry != nil {
			s.metrics = registry.CoreMetrics()
		}
	}
}

// New creates a Source reading subject from the server at url.
func New(url, subject string, opts ...Option) *Source {
	s := &Source{
		url:     url,
		subject: subject,
		name:    "surfacestream",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements input.Source.
func (s *Source) Name() string {
	if s.stream != "" {
		return fmt.Sprintf("nats:%s/%s", s.stream, s.subject)
	}
	return "nats:" + s.subject
}

// Run implements input.Source. It returns ctx.Err() once cancelled.
func (s *Source) Run(ctx context.Context, sink input.Sink) error {
	if s.subject == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "nats", "Run", "check subject")
	}

	conn := s.conn
	if conn == nil {
		c, err := gonats.Connect(s.url, s.connectOptions()...)
		if err != nil {
			return errors.WrapTransient(err, "nats", "Run", "connect")
		}
		defer c.Close()
		conn = c
	}

	s.metrics.RecordSourceStatus(s.Name(), true)
	defer s.metrics.RecordSourceStatus(s.Name(), false)

	records := input.Records(sink)
	if s.stream != "" {
		return s.replay(ctx, conn, records)
	}
	return s.subscribe(ctx, conn, records)
}

func (s *Source) connectOptions() []gonats.Option {
	opts := []gonats.Option{
		gonats.Name(s.name),
		gonats.MaxReconnects(-1),
		gonats.ReconnectWait(2 * time.Second),
		gonats.DisconnectErrHandler(func(_ *gonats.Conn, err error) {
			s.metrics.RecordSourceStatus(s.Name(), false)
			s.logger.Warn("nats disconnected", "component", "input", "source", s.Name(), "error", err)
		}),
		gonats.ReconnectHandler(func(c *gonats.Conn) {
			s.metrics.RecordSourceStatus(s.Name(), true)
			s.metrics.RecordSourceReconnect(s.Name())
			s.logger.Info("nats reconnected", "component", "input", "source", s.Name(), "url", c.ConnectedUrl())
		}),
	}
	if s.tls != nil {
		opts = append(opts, gonats.Secure(s.tls))
	}
	return opts
}

func (s *Source) subscribe(ctx context.Context, conn *gonats.Conn, sink input.Sink) error {
	ch := make(chan *gonats.Msg, pendingMessages)
	sub, err := conn.ChanSubscribe(s.subject, ch)
	if err != nil {
		return errors.WrapTransient(err, "nats", "subscribe", "subscribe")
	}
	defer func() { _ = sub.Unsubscribe() }()

	s.logger.Info("nats subscribed", "component", "input", "subject", s.subject)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			if err := sink.FeedBytes(msg.Data); err != nil {
				return errors.Wrap(err, "nats", "subscribe", "feed")
			}
		}
	}
}

func (s *Source) replay(ctx context.Context, conn *gonats.Conn, sink input.Sink) error {
	js, err := jetstream.New(conn)
	if err != nil {
		return errors.WrapTransient(err, "nats", "replay", "create jetstream context")
	}
	stream, err := js.Stream(ctx, s.stream)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrStreamNotFound) {
			return errors.WrapInvalid(err, "nats", "replay", "lookup stream")
		}
		return errors.WrapTransient(err, "nats", "replay", "lookup stream")
	}
	consumer, err := stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{s.subject},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return errors.WrapTransient(err, "nats", "replay", "create consumer")
	}

	var failed atomic.Bool
	errCh := make(chan error, 1)
	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		if failed.Load() {
			return
		}
		if err := sink.FeedBytes(msg.Data()); err != nil {
			failed.Store(true)
			errCh <- err
		}
	}, jetstream.ConsumeErrHandler(func(_ jetstream.ConsumeContext, err error) {
		s.logger.Warn("jetstream consume error", "component", "input", "source", s.Name(), "error", err)
	}))
	if err != nil {
		return errors.WrapTransient(err, "nats", "replay", "consume")
	}
	defer cc.Stop()

	s.logger.Info("jetstream replay started", "component", "input", "stream", s.stream, "subject", s.subject)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return errors.Wrap(err, "nats", "replay", "feed")
	}
}
