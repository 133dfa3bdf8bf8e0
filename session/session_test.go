package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/surfacestream/config"
	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/input"
	"github.com/c360/surfacestream/input/file"
	"github.com/c360/surfacestream/metric"
)

const feed = `{"beginRendering":{"surfaceId":"s1","root":"r"}}
{not json
{"updateComponents":{"surfaceId":"nope","components":[{"id":"x","component":{"type":"Text"}}]}}
{"updateComponents":{"surfaceId":"s1","components":[{"id":"r","component":{"type":"Text","content":"hi"}}]}}
{"updateDataModel":{"path":"user.name","value":"Ada"}}
`

func newSession(t *testing.T, mutate func(*config.Config), opts ...Option) *Session {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	s, err := New(cfg, opts...)
	require.NoError(t, err)
	return s
}

func TestSession_FeedAppliesAndRecordsDiagnostics(t *testing.T) {
	s := newSession(t, nil)
	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "surfacestream", s.Name)

	// Split mid-line to exercise buffering across chunks.
	require.NoError(t, s.Feed(feed[:30]))
	require.NoError(t, s.Feed(feed[30:]))
	require.NoError(t, s.Close())

	snap := s.Store().Snapshot()
	assert.Equal(t, uint64(3), snap.Version)
	sf, ok := snap.Surface("s1")
	require.True(t, ok)
	root, ok := sf.RootComponent()
	require.True(t, ok)
	assert.Equal(t, "Text", root.Type)
	content, _ := root.Field("content")
	assert.Equal(t, "hi", content)

	name, ok, err := s.Store().Get("user.name")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ada", name)

	diags := s.Diagnostics()
	require.Len(t, diags, 2)

	assert.Equal(t, "stream", diags[0].Component)
	assert.Equal(t, "line_syntax", diags[0].Kind)
	assert.Equal(t, 2, diags[0].Line)
	assert.ErrorIs(t, diags[0].Err, errors.ErrLineSyntax)

	assert.Equal(t, "store", diags[1].Component)
	assert.Equal(t, "unknown_surface", diags[1].Kind)
	assert.Equal(t, 3, diags[1].Line)
	assert.Contains(t, diags[1].Message, "nope")

	st := s.Stats()
	assert.Equal(t, int64(4), st.Stream.Messages)
	assert.Equal(t, int64(1), st.Stream.Errors)
	assert.Equal(t, int64(2), st.Diagnostics)
	assert.Equal(t, uint64(3), st.Version)
	assert.Equal(t, 1, st.Surfaces)
}

func TestSession_CloseIsTerminal(t *testing.T) {
	s := newSession(t, nil)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), errors.ErrClosed)
	assert.ErrorIs(t, s.Feed("{}\n"), errors.ErrClosed)
}

func TestSession_DiagnosticsRingDropsOldest(t *testing.T) {
	s := newSession(t, func(c *config.Config) { c.Session.DiagnosticsCapacity = 2 })

	require.NoError(t, s.Feed("[1]\n[2]\n[3]\n"))

	diags := s.Diagnostics()
	require.Len(t, diags, 2)
	assert.Equal(t, 2, diags[0].Line)
	assert.Equal(t, 3, diags[1].Line)

	st := s.Stats()
	assert.Equal(t, int64(3), st.Diagnostics)
	assert.Equal(t, int64(1), st.DiagnosticsDropped)
}

func TestSession_MaxLineBytes(t *testing.T) {
	s := newSession(t, func(c *config.Config) { c.Stream.MaxLineBytes = 16 })

	require.NoError(t, s.Feed(`{"deleteSurface":{"surfaceId":"a-very-long-surface-id"}}`+"\n"))
	diags := s.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "line_too_long", diags[0].Kind)
}

func TestSession_OversizedIndexIsDiagnostic(t *testing.T) {
	s := newSession(t, func(c *config.Config) { c.Store.MaxIndex = 8 })

	lines := `{"updateDataModel":{"path":"rows[9223372036854775807]","value":1}}
{"updateDataModel":{"path":"rows[9]","value":1}}
{"updateDataModel":{"path":"rows[1]","value":"ok"}}
`
	require.NotPanics(t, func() { require.NoError(t, s.Feed(lines)) })

	diags := s.Diagnostics()
	require.Len(t, diags, 2)
	for i, d := range diags {
		assert.Equal(t, "store", d.Component)
		assert.Equal(t, "path_syntax", d.Kind)
		assert.Equal(t, i+1, d.Line)
	}

	rows, ok, err := s.Store().Get("rows[1]")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ok", rows)
}

func TestSession_ConsumeFile(t *testing.T) {
	s := newSession(t, nil)
	src := file.FromReader("test", strings.NewReader(feed), file.WithChunkSize(7))

	require.NoError(t, s.Consume(context.Background(), src))
	assert.Equal(t, uint64(3), s.Store().Version())
	assert.Len(t, s.Diagnostics(), 2)
	assert.ErrorIs(t, s.Feed("{}\n"), errors.ErrClosed)
}

// blockingSource feeds one record and then waits for cancellation.
type blockingSource struct {
	fed chan struct{}
}

func (b *blockingSource) Name() string { return "blocking" }

func (b *blockingSource) Run(ctx context.Context, sink input.Sink) error {
	if err := sink.FeedBytes([]byte(`{"beginRendering":{"surfaceId":"s1","root":"r"}}` + "\n")); err != nil {
		return err
	}
	close(b.fed)
	<-ctx.Done()
	return ctx.Err()
}

func TestSession_ConsumeTreatsCancelAsEnd(t *testing.T) {
	s := newSession(t, nil)
	src := &blockingSource{fed: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Consume(ctx, src) }()

	select {
	case <-src.fed:
	case <-time.After(2 * time.Second):
		t.Fatal("source never fed")
	}
	cancel()

	require.NoError(t, <-done)
	assert.Equal(t, uint64(1), s.Store().Version())
}

type failingSource struct{}

func (failingSource) Name() string { return "failing" }

func (failingSource) Run(context.Context, input.Sink) error {
	return errors.WrapTransient(errors.ErrConnectionLost, "test", "Run", "read")
}

func TestSession_ConsumeReturnsSourceError(t *testing.T) {
	s := newSession(t, nil)
	err := s.Consume(context.Background(), failingSource{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConnectionLost)
	assert.True(t, errors.IsTransient(err))
}

func TestSession_ConcurrentReaders(t *testing.T) {
	s := newSession(t, nil)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_ = s.Store().Snapshot().SurfaceIDs()
					_ = s.Stats()
					_ = s.Diagnostics()
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		require.NoError(t, s.Feed(feed))
	}
	close(stop)
	wg.Wait()
	require.NoError(t, s.Close())
	assert.Equal(t, uint64(150), s.Store().Version())
}

func TestSession_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	s, err := New(config.Default(), WithMetrics(registry))
	require.NoError(t, err)
	require.NoError(t, s.Feed(feed))

	// A second session with the same name collides on the diagnostics metric.
	_, err = New(config.Default(), WithMetrics(registry))
	require.Error(t, err)

	cfg := config.Default()
	cfg.Session.Name = "second"
	_, err = New(cfg, WithMetrics(registry))
	require.NoError(t, err)
}

func TestSession_Health(t *testing.T) {
	s := newSession(t, nil)
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.started = start
	s.now = func() time.Time { return start.Add(time.Minute) }

	h := s.Health()
	assert.True(t, h.IsHealthy())
	require.NotNil(t, h.Metrics)
	assert.Equal(t, time.Minute, h.Metrics.Uptime)
	assert.True(t, h.Metrics.LastActivity.IsZero())

	require.NoError(t, s.Feed(feed))
	h = s.Health()
	assert.True(t, h.IsDegraded())
	assert.Equal(t, int64(2), h.Metrics.ErrorCount)
	assert.Equal(t, int64(4), h.Metrics.MessagesProcessed)
	assert.True(t, h.Metrics.LastActivity.Equal(start.Add(time.Minute)))
}
