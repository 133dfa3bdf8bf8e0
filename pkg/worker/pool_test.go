package worker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/surfacestream/metric"
)

func TestPool_ProcessesInOrderWithOneWorker(t *testing.T) {
	var mu sync.Mutex
	var got []int
	p := NewPool[int](1, 10, func(_ context.Context, n int) error {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
		return nil
	})
	require.NoError(t, p.Start(context.Background()))

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(i))
	}
	require.NoError(t, p.Stop(time.Second))

	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	st := p.Stats()
	assert.Equal(t, int64(5), st.Submitted)
	assert.Equal(t, int64(5), st.Processed)
	assert.Equal(t, 1, st.Workers)
}

func TestPool_Lifecycle(t *testing.T) {
	p := NewPool[int](1, 1, func(context.Context, int) error { return nil })
	assert.ErrorIs(t, p.Submit(1), ErrPoolNotStarted)

	require.NoError(t, p.Start(context.Background()))
	assert.ErrorIs(t, p.Start(context.Background()), ErrPoolAlreadyStarted)

	require.NoError(t, p.Stop(time.Second))
	assert.ErrorIs(t, p.Submit(1), ErrPoolStopped)
	assert.NoError(t, p.Stop(time.Second), "second stop is a no-op")
}

func TestPool_QueueFullDrops(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	p := NewPool[int](1, 1, func(context.Context, int) error {
		started <- struct{}{}
		<-release
		return nil
	})
	require.NoError(t, p.Start(context.Background()))

	require.NoError(t, p.Submit(1))
	<-started // worker holds item 1
	require.NoError(t, p.Submit(2))
	assert.ErrorIs(t, p.Submit(3), ErrQueueFull)

	close(release)
	require.NoError(t, p.Stop(time.Second))
	st := p.Stats()
	assert.Equal(t, int64(1), st.Dropped)
	assert.Equal(t, int64(2), st.Processed)
}

func TestPool_FailuresCounted(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	p := NewPool[int](2, 10, func(_ context.Context, n int) error {
		if n%2 == 0 {
			return fmt.Errorf("even %d", n)
		}
		return nil
	}, WithMetricsRegistry[int](registry, "test"))
	require.NoError(t, p.Start(context.Background()))
	for i := 0; i < 4; i++ {
		require.NoError(t, p.Submit(i))
	}
	require.NoError(t, p.Stop(time.Second))

	assert.Equal(t, int64(2), p.Stats().Failed)
	require.NotNil(t, p.metrics)
	assert.Equal(t, 4.0, testutil.ToFloat64(p.metrics.processed))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.metrics.failed))
}

func TestPool_StopTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	p := NewPool[int](1, 1, func(context.Context, int) error {
		<-block
		return nil
	})
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Submit(1))
	assert.ErrorIs(t, p.Stop(10*time.Millisecond), ErrStopTimeout)
}

func TestNewPool_NilProcessorPanics(t *testing.T) {
	assert.PanicsWithValue(t, ErrNilProcessor, func() {
		NewPool[int](1, 1, nil)
	})
}

func TestPool_MetricCollisionIsLogged(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	noop := func(context.Context, int) error { return nil }

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	NewPool(1, 1, noop, WithMetricsRegistry[int](registry, "dup"), WithLogger[int](logger))
	assert.Empty(t, buf.String())

	p := NewPool(1, 1, noop, WithMetricsRegistry[int](registry, "dup"), WithLogger[int](logger))
	assert.Equal(t, 6, strings.Count(buf.String(), "metric registration failed"))
	assert.NotNil(t, p.metrics)
}
