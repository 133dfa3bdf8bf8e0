package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/c360/surfacestream/config"
)

// CLIConfig holds command-line configuration. Empty or zero values leave the
// loaded configuration untouched.
type CLIConfig struct {
	ConfigPath    string
	Input         string
	URL           string
	NATSURL       string
	Subject       string
	Stream        string
	UDPPort       int
	LogLevel      string
	LogFormat     string
	MetricsPort   int
	BroadcastPort int
	Lint          bool
	Strict        bool
	Validate      bool
	ShowVersion   bool
}

func parseFlags(args []string, stderr io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Define flags with environment variable fallback
	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("SURFACESTREAM_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: SURFACESTREAM_CONFIG)")
	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("SURFACESTREAM_CONFIG", ""),
		"Shorthand for --config")

	fs.StringVar(&cfg.Input, "input", "",
		"Read the feed from a file, or - for stdin")
	fs.StringVar(&cfg.URL, "url", "",
		"Read the feed from an http(s) stream or a ws(s) endpoint")
	fs.StringVar(&cfg.NATSURL, "nats-url", "",
		"NATS server URL")
	fs.StringVar(&cfg.Subject, "subject", "",
		"Read the feed from a NATS subject")
	fs.StringVar(&cfg.Stream, "stream", "",
		"Replay --subject from this JetStream stream")
	fs.IntVar(&cfg.UDPPort, "udp-port", 0,
		"Read the feed from UDP datagrams on this port")

	fs.StringVar(&cfg.LogLevel, "log-level", "",
		"Log level: debug, info, warn, error (env: SURFACESTREAM_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", "",
		"Log format: json, text (env: SURFACESTREAM_LOG_FORMAT)")
	fs.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("SURFACESTREAM_METRICS_PORT", 0),
		"Serve Prometheus metrics on this port, 0 to disable (env: SURFACESTREAM_METRICS_PORT)")
	fs.IntVar(&cfg.BroadcastPort, "broadcast-port", 0,
		"Push snapshots to WebSocket clients on this port and keep serving after input ends")

	fs.BoolVar(&cfg.Lint, "lint", false, "Validate each line against the wire schema instead of applying it")
	fs.BoolVar(&cfg.Strict, "strict", false, "Exit with status 1 when any diagnostic was recorded")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")

	fs.Usage = func() {
		printDetailedHelp(fs, stderr)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return cfg, nil
}

// applyFlags overlays command-line choices on the loaded configuration. The
// last input flag in this order wins: --input, --url, --subject, --udp-port.
func applyFlags(cfg *config.Config, cli *CLIConfig) {
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Log.Format = cli.LogFormat
	}
	if cli.MetricsPort > 0 {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Port = cli.MetricsPort
	}
	if cli.BroadcastPort > 0 {
		cfg.Broadcast.Enabled = true
		cfg.Broadcast.Port = cli.BroadcastPort
	}

	if cli.Input != "" {
		cfg.Input.Type = config.InputFile
		cfg.Input.Path = cli.Input
	}
	if cli.URL != "" {
		cfg.Input.URL = cli.URL
		if strings.HasPrefix(cli.URL, "ws://") || strings.HasPrefix(cli.URL, "wss://") {
			cfg.Input.Type = config.InputWebSocket
		} else {
			cfg.Input.Type = config.InputHTTP
		}
	}
	if cli.NATSURL != "" {
		cfg.Input.NATS.URL = cli.NATSURL
	}
	if cli.Stream != "" {
		cfg.Input.NATS.Stream = cli.Stream
	}
	if cli.Subject != "" {
		cfg.Input.Type = config.InputNATS
		cfg.Input.NATS.Subject = cli.Subject
	}
	if cli.UDPPort > 0 {
		cfg.Input.Type = config.InputUDP
		cfg.Input.UDP.Port = cli.UDPPort
	}
}

func printDetailedHelp(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintf(w, `%s - server-driven UI stream runtime

Replays a JSON-Lines surface feed and prints the final snapshot as JSON.

Usage: %s [options]

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Replay a recorded feed
  %[1]s --input=session.jsonl

  # Follow a live WebSocket feed with debug logging
  %[1]s --url=ws://localhost:8080/ui --log-level=debug --log-format=text

  # Replay a JetStream stream and fail on any rejected line
  %[1]s --nats-url=nats://localhost:4222 --subject=ui.feed --stream=UI --strict

  # Check a feed against the wire schema
  %[1]s --input=session.jsonl --lint

  # Follow a UDP feed and push snapshots to renderers on ws://localhost:8080/surfaces
  %[1]s --udp-port=14550 --broadcast-port=8080

Version: %[2]s
Build: %[3]s
`, appName, Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
