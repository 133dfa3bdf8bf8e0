package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/input"
	"github.com/c360/surfacestream/pkg/retry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func fastRetry(attempts int) retry.Config {
	return retry.Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

type recorder struct {
	mu  sync.Mutex
	out strings.Builder
}

func (r *recorder) FeedBytes(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out.Write(data)
	return nil
}

func (r *recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out.String()
}

func closeNormally(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
	_ = conn.Close()
}

func TestSource_FramesBecomeRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Token"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"beginRendering":{"surfaceId":"s1","root":"r"}}`))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte(`{"deleteSurface":{"surfaceId":"s1"}}`+"\n"))
		closeNormally(conn)
	}))
	defer srv.Close()

	rec := &recorder{}
	src := New(wsURL(srv), WithHeader("X-Token", "secret"), WithRetry(fastRetry(1)))
	require.NoError(t, src.Run(context.Background(), rec))

	assert.Equal(t,
		`{"beginRendering":{"surfaceId":"s1","root":"r"}}`+"\n"+
			`{"deleteSurface":{"surfaceId":"s1"}}`+"\n",
		rec.String())
	assert.Equal(t, wsURL(srv), src.Name())
}

func TestSource_ReconnectsAfterAbnormalClose(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := conns.Add(1)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"n":1}`))
		if n == 1 {
			// Drop the TCP connection without a close frame.
			_ = conn.Close()
			return
		}
		closeNormally(conn)
	}))
	defer srv.Close()

	rec := &recorder{}
	src := New(wsURL(srv), WithRetry(fastRetry(5)))
	require.NoError(t, src.Run(context.Background(), rec))

	assert.Equal(t, int32(2), conns.Load())
	assert.Equal(t, "{\"n\":1}\n{\"n\":1}\n", rec.String())
}

func TestSource_HandshakeRejectedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src := New(wsURL(srv), WithRetry(fastRetry(5)))
	err := src.Run(context.Background(), &recorder{})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestSource_SinkErrorStops(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conns.Add(1)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{}`))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	boom := errors.ErrClosed
	sink := input.SinkFunc(func([]byte) error { return boom })
	err := New(wsURL(srv), WithRetry(fastRetry(5))).Run(context.Background(), sink)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), conns.Load())
}

func TestSource_CancelStopsRun(t *testing.T) {
	connected := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		close(connected)
		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(wsURL(srv), WithRetry(fastRetry(-1))).Run(ctx, &recorder{})
	}()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("client never connected")
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
