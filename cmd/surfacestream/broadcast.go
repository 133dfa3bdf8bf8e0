package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/c360/surfacestream/config"
	"github.com/c360/surfacestream/metric"
	"github.com/c360/surfacestream/output/websocket"
	"github.com/c360/surfacestream/store"
)

// serveBroadcast pushes st's snapshots to WebSocket clients on ln until the
// returned stop function is called.
func serveBroadcast(ctx context.Context, ln net.Listener, cfg config.BroadcastConfig, st *store.Store,
	logger *slog.Logger, registry *metric.MetricsRegistry) (stop func(), err error) {
	b := websocket.New(st,
		websocket.WithWriteTimeout(cfg.WriteTimeout),
		websocket.WithPingInterval(cfg.PingInterval),
		websocket.WithLogger(logger),
		websocket.WithMetrics(registry))
	if err := b.Start(ctx); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("start broadcast: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, b)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error("broadcast server failed", "error", err)
		}
	}()
	logger.Info("Broadcast server started", "address", fmt.Sprintf("ws://%s%s", ln.Addr(), cfg.Path))

	return func() {
		if err := b.Stop(5 * time.Second); err != nil {
			logger.Warn("broadcast stop", "error", err)
		}
		_ = srv.Close()
	}, nil
}
