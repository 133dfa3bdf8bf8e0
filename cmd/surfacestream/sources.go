package main

import (
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/c360/surfacestream/config"
	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/input"
	"github.com/c360/surfacestream/input/file"
	"github.com/c360/surfacestream/input/httpstream"
	"github.com/c360/surfacestream/input/nats"
	"github.com/c360/surfacestream/input/udp"
	"github.com/c360/surfacestream/input/websocket"
	"github.com/c360/surfacestream/metric"
	"github.com/c360/surfacestream/pkg/retry"
	"github.com/c360/surfacestream/pkg/tlsutil"
)

// buildSource creates the input.Source selected by cfg.Input.Type.
func buildSource(cfg *config.Config, logger *slog.Logger, registry *metric.MetricsRegistry) (input.Source, error) {
	in := cfg.Input
	reconnect := retry.Config{
		MaxAttempts:  in.Reconnect.MaxAttempts,
		InitialDelay: in.Reconnect.InitialDelay,
		MaxDelay:     in.Reconnect.MaxDelay,
		Multiplier:   2.0,
		AddJitter:    true,
	}

	var tlsConfig *tls.Config
	if in.TLS.Configured() {
		c, err := tlsutil.LoadClientTLSConfig(in.TLS)
		if err != nil {
			return nil, err
		}
		tlsConfig = c
	}

	switch in.Type {
	case config.InputFile:
		return file.New(in.Path,
			file.WithChunkSize(in.ChunkSize),
			file.WithLogger(logger)), nil

	case config.InputHTTP:
		opts := []httpstream.Option{
			httpstream.WithChunkSize(in.ChunkSize),
			httpstream.WithRetry(reconnect),
			httpstream.WithLogger(logger),
			httpstream.WithMetrics(registry),
		}
		if tlsConfig != nil {
			opts = append(opts, httpstream.WithTLSConfig(tlsConfig))
		}
		for k, v := range in.Headers {
			opts = append(opts, httpstream.WithHeader(k, v))
		}
		return httpstream.New(in.URL, opts...), nil

	case config.InputWebSocket:
		opts := []websocket.Option{
			websocket.WithRetry(reconnect),
			websocket.WithLogger(logger),
			websocket.WithMetrics(registry),
		}
		if tlsConfig != nil {
			opts = append(opts, websocket.WithTLSConfig(tlsConfig))
		}
		for k, v := range in.Headers {
			opts = append(opts, websocket.WithHeader(k, v))
		}
		return websocket.New(in.URL, opts...), nil

	case config.InputNATS:
		opts := []nats.Option{
			nats.WithStream(in.NATS.Stream),
			nats.WithClientName(cfg.Session.Name),
			nats.WithLogger(logger),
			nats.WithMetrics(registry),
		}
		if tlsConfig != nil {
			opts = append(opts, nats.WithTLSConfig(tlsConfig))
		}
		return nats.New(in.NATS.URL, in.NATS.Subject, opts...), nil

	case config.InputUDP:
		return udp.New(in.UDP.Bind, in.UDP.Port,
			udp.WithLogger(logger),
			udp.WithMetrics(registry)), nil

	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: unknown input type %q", errors.ErrInvalidConfig, in.Type),
			"main", "buildSource", "select input")
	}
}
