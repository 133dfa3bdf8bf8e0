package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/c360/surfacestream/config"
	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/health"
	"github.com/c360/surfacestream/input"
	"github.com/c360/surfacestream/metric"
	"github.com/c360/surfacestream/pkg/buffer"
	"github.com/c360/surfacestream/protocol"
	"github.com/c360/surfacestream/store"
	"github.com/c360/surfacestream/stream"
)

// Diagnostic records one rejected line or message.
type Diagnostic struct {
	Time      time.Time `json:"time"`
	Kind      string    `json:"kind"`      // errors.Kind of Err
	Component string    `json:"component"` // "stream" or "store"
	Line      int       `json:"line,omitempty"`
	Message   string    `json:"message"`
	Err       error     `json:"-"`
}

// Stats summarizes a session.
type Stats struct {
	Stream             stream.Stats `json:"stream"`
	Version            uint64       `json:"version"`
	Surfaces           int          `json:"surfaces"`
	Diagnostics        int64        `json:"diagnostics"`
	DiagnosticsDropped int64        `json:"diagnostics_dropped"`
}

// Session owns a parser and the store it feeds.
type Session struct {
	ID   string
	Name string

	mu     sync.Mutex
	parser *stream.Parser
	store  *store.Store

	// line is the input line whose message is being applied, 0 otherwise
	line  atomic.Int64
	diags *buffer.Ring[Diagnostic]

	started      time.Time
	lastActivity atomic.Int64 // unix nanos of the last fed chunk

	logger   *slog.Logger
	registry *metric.MetricsRegistry
	now      func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics wires the parser, store and diagnostics ring to registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *Session) {
		s.registry = registry
	}
}

// New creates a session from cfg. A nil cfg uses config.Default().
func New(cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Session{
		ID:     uuid.NewString(),
		Name:   cfg.Session.Name,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()
	s.logger = s.logger.With("session", s.Name, "session_id", s.ID)

	diags, err := buffer.New[Diagnostic](cfg.Session.DiagnosticsCapacity,
		buffer.WithPolicy[Diagnostic](buffer.DropOldest),
		buffer.WithMetrics[Diagnostic](s.registry, s.Name+"_diagnostics"))
	if err != nil {
		return nil, errors.Wrap(err, "Session", "New", "create diagnostics buffer")
	}
	s.diags = diags

	s.store = store.New(
		store.WithReporter(s.storeRejected),
		store.WithLogger(s.logger),
		store.WithMetrics(s.registry),
		store.WithPathCacheSize(cfg.Store.PathCacheSize),
		store.WithMaxIndex(cfg.Store.MaxIndex),
	)
	s.parser = stream.NewParser(s.apply, s.lineRejected,
		stream.WithMaxLineBytes(cfg.Stream.MaxLineBytes),
		stream.WithLogger(s.logger),
		stream.WithMetrics(s.registry, s.Name),
	)
	return s, nil
}

// Feed passes a text chunk to the parser.
func (s *Session) Feed(chunk string) error {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parser.Feed(chunk)
}

// FeedBytes implements input.Sink.
func (s *Session) FeedBytes(data []byte) error {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parser.FeedBytes(data)
}

// Close flushes the parser. The store stays readable.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parser.Close()
}

// Consume runs src until it ends and then closes the session. Cancellation
// of ctx counts as a normal end of input.
func (s *Session) Consume(ctx context.Context, src input.Source) error {
	s.logger.Info("consuming", "component", "session", "source", src.Name())

	err := src.Run(ctx, s)
	if stderrors.Is(err, context.Canceled) {
		err = nil
	}
	closeErr := s.Close()
	if err != nil {
		return errors.Wrap(err, "Session", "Consume", "run "+src.Name())
	}
	if closeErr != nil && !stderrors.Is(closeErr, errors.ErrClosed) {
		return closeErr
	}

	st := s.Stats()
	s.logger.Info("input finished",
		"component", "session",
		"source", src.Name(),
		"messages", st.Stream.Messages,
		"diagnostics", st.Diagnostics,
		"version", st.Version)
	return nil
}

// Store returns the session's store.
func (s *Session) Store() *store.Store {
	return s.store
}

// Diagnostics returns the retained diagnostics, oldest first.
func (s *Session) Diagnostics() []Diagnostic {
	return s.diags.Snapshot()
}

// Stats returns current counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	ps := s.parser.Stats()
	s.mu.Unlock()

	snap := s.store.Snapshot()
	ds := s.diags.Counters()
	return Stats{
		Stream:             ps,
		Version:            snap.Version,
		Surfaces:           len(snap.Surfaces),
		Diagnostics:        ds.Pushed,
		DiagnosticsDropped: ds.Dropped,
	}
}

// Health reports the session as degraded once any line or message has been
// rejected, healthy otherwise.
func (s *Session) Health() health.Status {
	st := s.Stats()
	m := &health.Metrics{
		Uptime:            s.now().Sub(s.started),
		ErrorCount:        st.Diagnostics,
		MessagesProcessed: st.Stream.Messages,
	}
	if ns := s.lastActivity.Load(); ns != 0 {
		m.LastActivity = time.Unix(0, ns)
	}

	var status health.Status
	if st.Diagnostics > 0 {
		status = health.NewDegraded(s.Name,
			fmt.Sprintf("%d rejected lines or messages", st.Diagnostics))
	} else {
		status = health.NewHealthy(s.Name, fmt.Sprintf("version %d", st.Version))
	}
	return status.WithMetrics(m)
}

func (s *Session) touch() {
	s.lastActivity.Store(s.now().UnixNano())
}

// apply runs under s.mu from inside the parser.
func (s *Session) apply(msg protocol.Message) {
	s.line.Store(int64(s.parser.Line()))
	defer s.line.Store(0)
	// Failures arrive through storeRejected.
	_ = s.store.Apply(msg)
}

func (s *Session) lineRejected(err error) {
	line := stream.LineOf(err)
	s.logger.Warn("line rejected", "component", "stream", "line", line, "error", err)
	s.record("stream", line, err)
}

// storeRejected is the store reporter. The store logs the rejection itself.
func (s *Session) storeRejected(err error) {
	s.record("store", int(s.line.Load()), err)
}

func (s *Session) record(component string, line int, err error) {
	s.diags.Push(Diagnostic{
		Time:      s.now(),
		Kind:      errors.Kind(err),
		Component: component,
		Line:      line,
		Message:   err.Error(),
		Err:       err,
	})
}
