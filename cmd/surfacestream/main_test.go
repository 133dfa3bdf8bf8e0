package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/surfacestream/config"
	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/input/file"
	"github.com/c360/surfacestream/input/httpstream"
	"github.com/c360/surfacestream/input/nats"
	"github.com/c360/surfacestream/input/udp"
	"github.com/c360/surfacestream/input/websocket"
	"github.com/c360/surfacestream/metric"
)

const goodFeed = `{"beginRendering":{"surfaceId":"s1","root":"r"}}
{"updateComponents":{"surfaceId":"s1","components":[{"id":"r","component":{"type":"Text","content":"hi"}}]}}
{"updateDataModel":{"path":"user.name","value":"Ada"}}
`

func writeFeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_PrintsSnapshot(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--input", writeFeed(t, goodFeed)}, &stdout, &stderr)
	require.NoError(t, err)

	var snap struct {
		Version   uint64                     `json:"version"`
		Surfaces  map[string]json.RawMessage `json:"surfaces"`
		DataModel map[string]any             `json:"dataModel"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &snap))
	assert.Equal(t, uint64(3), snap.Version)
	assert.Contains(t, snap.Surfaces, "s1")
	assert.Equal(t, map[string]any{"name": "Ada"}, snap.DataModel["user"])
	assert.Contains(t, stderr.String(), "Starting surfacestream")
}

func TestRun_Strict(t *testing.T) {
	path := writeFeed(t, goodFeed+"{broken\n")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--input", path}, &stdout, &stderr))

	stdout.Reset()
	err := run(context.Background(), []string{"--input", path, "--strict"}, &stdout, &stderr)
	require.ErrorIs(t, err, errStrict)
	assert.NotEmpty(t, stdout.String(), "snapshot is still printed")
}

func TestRun_Lint(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(),
		[]string{"--input", writeFeed(t, goodFeed), "--lint"}, &stdout, &stderr))
	assert.Empty(t, stdout.String())

	stdout.Reset()
	err := run(context.Background(),
		[]string{"--input", writeFeed(t, goodFeed+`{"deleteSurface":{}}`+"\n"), "--lint"}, &stdout, &stderr)
	require.ErrorIs(t, err, errStrict)
	assert.Contains(t, stdout.String(), "line 4:")
}

func TestRun_VersionAndHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--version"}, &stdout, &stderr))
	assert.Equal(t, "surfacestream version "+Version+"\n", stdout.String())

	stdout.Reset()
	require.NoError(t, run(context.Background(), []string{"-h"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Examples:")
}

func TestRun_InvalidConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--log-level", "loud"}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	err = run(context.Background(), []string{"stray"}, &stdout, &stderr)
	require.Error(t, err)
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name  string
		cli   CLIConfig
		check func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "file",
			cli:  CLIConfig{Input: "feed.jsonl"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.InputFile, cfg.Input.Type)
				assert.Equal(t, "feed.jsonl", cfg.Input.Path)
			},
		},
		{
			name: "http",
			cli:  CLIConfig{URL: "https://example.com/feed"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.InputHTTP, cfg.Input.Type)
			},
		},
		{
			name: "websocket",
			cli:  CLIConfig{URL: "wss://example.com/feed"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.InputWebSocket, cfg.Input.Type)
				assert.Equal(t, "wss://example.com/feed", cfg.Input.URL)
			},
		},
		{
			name: "nats replay",
			cli:  CLIConfig{NATSURL: "nats://nats:4222", Subject: "ui.feed", Stream: "UI"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.InputNATS, cfg.Input.Type)
				assert.Equal(t, "nats://nats:4222", cfg.Input.NATS.URL)
				assert.Equal(t, "UI", cfg.Input.NATS.Stream)
			},
		},
		{
			name: "broadcast",
			cli:  CLIConfig{BroadcastPort: 8081},
			check: func(t *testing.T, cfg *config.Config) {
				assert.True(t, cfg.Broadcast.Enabled)
				assert.Equal(t, 8081, cfg.Broadcast.Port)
				assert.Equal(t, config.InputFile, cfg.Input.Type)
			},
		},
		{
			name: "udp",
			cli:  CLIConfig{UDPPort: 5000},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.InputUDP, cfg.Input.Type)
				assert.Equal(t, 5000, cfg.Input.UDP.Port)
			},
		},
		{
			name: "logging and metrics",
			cli:  CLIConfig{LogLevel: "debug", LogFormat: "json", MetricsPort: 9999},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "debug", cfg.Log.Level)
				assert.Equal(t, "json", cfg.Log.Format)
				assert.True(t, cfg.Metrics.Enabled)
				assert.Equal(t, 9999, cfg.Metrics.Port)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			applyFlags(cfg, &tt.cli)
			require.NoError(t, cfg.Validate())
			tt.check(t, cfg)
		})
	}
}

func TestBuildSource(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	tests := []struct {
		typ  string
		want any
	}{
		{config.InputFile, &file.Source{}},
		{config.InputHTTP, &httpstream.Source{}},
		{config.InputWebSocket, &websocket.Source{}},
		{config.InputNATS, &nats.Source{}},
		{config.InputUDP, &udp.Source{}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			cfg := config.Default()
			cfg.Input.Type = tt.typ
			cfg.Input.URL = "http://localhost"
			cfg.Input.NATS.Subject = "ui.feed"
			src, err := buildSource(cfg, nil, registry)
			require.NoError(t, err)
			assert.IsType(t, tt.want, src)
		})
	}

	cfg := config.Default()
	cfg.Input.Type = config.InputHTTP
	cfg.Input.TLS.CAFiles = []string{"/nonexistent/ca.pem"}
	_, err := buildSource(cfg, nil, registry)
	assert.True(t, errors.IsFatal(err))

	cfg = config.Default()
	cfg.Input.Type = "smoke-signal"
	_, err = buildSource(cfg, nil, registry)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}
