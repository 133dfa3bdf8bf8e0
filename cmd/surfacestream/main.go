// Package main implements the surfacestream command, which replays a
// server-driven UI feed into a surface store and prints the resulting
// snapshot.
package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/c360/surfacestream/config"
	"github.com/c360/surfacestream/health"
	"github.com/c360/surfacestream/metric"
	"github.com/c360/surfacestream/session"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "surfacestream"
)

// errStrict is returned when --strict is set and the feed produced
// diagnostics or schema violations.
var errStrict = stderrors.New("feed produced diagnostics")

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	if err != nil {
		slog.Error("surfacestream failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli, err := parseFlags(args, stderr)
	if stderrors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cli.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil
	}

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	logger := setupLogger(stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cli.Validate {
		logger.Info("Configuration is valid")
		_, _ = fmt.Fprint(stdout, cfg.String())
		return nil
	}

	logger.Info("Starting surfacestream",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cli.ConfigPath,
		"input", cfg.Input.Type)

	registry := metric.NewMetricsRegistry()
	monitor := health.NewMonitor()
	if cfg.Metrics.Enabled {
		srv := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		srv.SetHealthHandler(monitor.Handler(appName))
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() { _ = srv.Stop() }()
		logger.Info("Metrics server started", "address", srv.Address())
	}

	src, err := buildSource(cfg, logger, registry)
	if err != nil {
		return err
	}

	if cli.Lint {
		n, err := runLint(ctx, src, stdout)
		if err != nil {
			return fmt.Errorf("lint: %w", err)
		}
		logger.Info("Lint finished", "violations", n)
		if n > 0 {
			return fmt.Errorf("%w: %d schema violations", errStrict, n)
		}
		return nil
	}

	sess, err := session.New(cfg, session.WithLogger(logger), session.WithMetrics(registry))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	monitor.AddCheck("session", sess.Health)

	if cfg.Broadcast.Enabled {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Broadcast.Port))
		if err != nil {
			return fmt.Errorf("broadcast listen: %w", err)
		}
		stop, err := serveBroadcast(ctx, ln, cfg.Broadcast, sess.Store(), logger, registry)
		if err != nil {
			return err
		}
		defer stop()
	}

	monitor.Update("source", health.NewHealthy("", "consuming "+src.Name()))

	err = sess.Consume(ctx, src)
	monitor.Update("source", health.FromError("", err))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sess.Store().Snapshot()); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	if cfg.Broadcast.Enabled && ctx.Err() == nil {
		logger.Info("Input finished, serving final snapshot until interrupted")
		<-ctx.Done()
	}

	if cli.Strict {
		if n := len(sess.Diagnostics()); n > 0 {
			return fmt.Errorf("%w: %d diagnostics", errStrict, n)
		}
	}
	return nil
}

// loadConfig merges the optional config file, environment overrides and
// flags, then validates the result.
func loadConfig(cli *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cli.ConfigPath != "" {
		loader.AddLayer(cli.ConfigPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	applyFlags(cfg, cli)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
