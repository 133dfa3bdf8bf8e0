package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/surfacestream/datapath"
	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/pkg/security"
)

// Input source types
const (
	InputFile      = "file"
	InputHTTP      = "http"
	InputWebSocket = "websocket"
	InputNATS      = "nats"
	InputUDP       = "udp"
)

// Config represents the complete application configuration
type Config struct {
	Log       LogConfig       `json:"log" yaml:"log"`
	Stream    StreamConfig    `json:"stream" yaml:"stream"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Session   SessionConfig   `json:"session" yaml:"session"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
	Input     InputConfig     `json:"input" yaml:"input"`
	Broadcast BroadcastConfig `json:"broadcast" yaml:"broadcast"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json, text
}

// StreamConfig tunes the JSON-Lines parser.
type StreamConfig struct {
	// MaxLineBytes bounds a single line; 0 means unbounded
	MaxLineBytes int `json:"max_line_bytes" yaml:"max_line_bytes"`
}

// StoreConfig tunes the store.
type StoreConfig struct {
	PathCacheSize int `json:"path_cache_size" yaml:"path_cache_size"`
	// MaxIndex is the largest slice index a data-model update may write.
	MaxIndex int `json:"max_index" yaml:"max_index"`
}

// SessionConfig tunes the parser/store session.
type SessionConfig struct {
	Name                string `json:"name" yaml:"name"`
	DiagnosticsCapacity int    `json:"diagnostics_capacity" yaml:"diagnostics_capacity"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`
}

// BroadcastConfig controls the WebSocket endpoint that pushes snapshots to
// remote renderers.
type BroadcastConfig struct {
	Enabled      bool          `json:"enabled" yaml:"enabled"`
	Port         int           `json:"port" yaml:"port"`
	Path         string        `json:"path" yaml:"path"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	PingInterval time.Duration `json:"ping_interval" yaml:"ping_interval"`
}

// InputConfig selects and configures the ingress source.
type InputConfig struct {
	Type      string            `json:"type" yaml:"type"`
	Path      string            `json:"path,omitempty" yaml:"path"`
	URL       string            `json:"url,omitempty" yaml:"url"`
	ChunkSize int               `json:"chunk_size" yaml:"chunk_size"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers"`
	Reconnect ReconnectConfig   `json:"reconnect" yaml:"reconnect"`
	NATS      NATSConfig        `json:"nats" yaml:"nats"`
	UDP       UDPConfig         `json:"udp" yaml:"udp"`

	// TLS applies to https, wss and NATS connections
	TLS security.ClientTLSConfig `json:"tls,omitempty" yaml:"tls"`
}

// ReconnectConfig is the backoff used by reconnecting sources.
type ReconnectConfig struct {
	// MaxAttempts < 0 retries forever
	MaxAttempts  int           `json:"max_attempts" yaml:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay" yaml:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay" yaml:"max_delay"`
}

// NATSConfig configures the NATS source.
type NATSConfig struct {
	URL     string `json:"url" yaml:"url"`
	Subject string `json:"subject" yaml:"subject"`
	// Stream, when set, replays the subject from a JetStream stream using an
	// ordered consumer instead of a core subscription
	Stream string `json:"stream,omitempty" yaml:"stream"`
}

// UDPConfig configures the UDP listener.
type UDPConfig struct {
	Bind string `json:"bind" yaml:"bind"`
	Port int    `json:"port" yaml:"port"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Stream: StreamConfig{
			MaxLineBytes: 1 << 20,
		},
		Store: StoreConfig{
			PathCacheSize: 1024,
			MaxIndex:      datapath.DefaultMaxIndex,
		},
		Session: SessionConfig{
			Name:                "surfacestream",
			DiagnosticsCapacity: 256,
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
		Broadcast: BroadcastConfig{
			Port:         8080,
			Path:         "/surfaces",
			WriteTimeout: 5 * time.Second,
			PingInterval: 30 * time.Second,
		},
		Input: InputConfig{
			Type:      InputFile,
			Path:      "-",
			ChunkSize: 32 << 10,
			Reconnect: ReconnectConfig{
				MaxAttempts:  -1,
				InitialDelay: 500 * time.Millisecond,
				MaxDelay:     30 * time.Second,
			},
			NATS: NATSConfig{
				URL: "nats://localhost:4222",
			},
			UDP: UDPConfig{
				Bind: "127.0.0.1",
				Port: 14550,
			},
		},
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrInvalidConfig, fmt.Sprintf(format, args...)),
			"Config", "Validate", "configuration check")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level %q must be debug, info, warn or error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return invalid("log.format %q must be json or text", c.Log.Format)
	}

	if c.Stream.MaxLineBytes < 0 {
		return invalid("stream.max_line_bytes must not be negative")
	}
	if c.Store.PathCacheSize < 0 {
		return invalid("store.path_cache_size must not be negative")
	}
	if c.Store.MaxIndex <= 0 {
		return invalid("store.max_index must be positive")
	}
	if c.Session.DiagnosticsCapacity <= 0 {
		return invalid("session.diagnostics_capacity must be positive")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return invalid("metrics.port %d out of range", c.Metrics.Port)
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return invalid("metrics.path %q must start with /", c.Metrics.Path)
		}
	}

	if b := c.Broadcast; b.Enabled {
		if b.Port <= 0 || b.Port > 65535 {
			return invalid("broadcast.port %d out of range", b.Port)
		}
		if c.Metrics.Enabled && b.Port == c.Metrics.Port {
			return invalid("broadcast.port %d is already used by metrics", b.Port)
		}
		if !strings.HasPrefix(b.Path, "/") {
			return invalid("broadcast.path %q must start with /", b.Path)
		}
		if b.WriteTimeout <= 0 || b.PingInterval <= 0 {
			return invalid("broadcast.write_timeout and broadcast.ping_interval must be positive")
		}
	}

	in := c.Input
	if in.ChunkSize <= 0 {
		return invalid("input.chunk_size must be positive")
	}
	if in.Reconnect.InitialDelay < 0 || in.Reconnect.MaxDelay < 0 {
		return invalid("input.reconnect delays must not be negative")
	}
	if in.TLS.MTLS.Enabled && (in.TLS.MTLS.CertFile == "" || in.TLS.MTLS.KeyFile == "") {
		return invalid("input.tls.mtls requires cert_file and key_file")
	}
	switch in.Type {
	case InputFile:
		if in.Path == "" {
			return invalid("input.path is required for file input")
		}
	case InputHTTP, InputWebSocket:
		if in.URL == "" {
			return invalid("input.url is required for %s input", in.Type)
		}
	case InputNATS:
		if in.NATS.URL == "" || in.NATS.Subject == "" {
			return invalid("input.nats.url and input.nats.subject are required for nats input")
		}
	case InputUDP:
		if in.UDP.Port < 0 || in.UDP.Port > 65535 {
			return invalid("input.udp.port %d out of range", in.UDP.Port)
		}
	default:
		return invalid("input.type %q must be file, http, websocket, nats or udp", in.Type)
	}

	return nil
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:    []string{},
		envPrefix: "SURFACESTREAM",
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("load %s", path))
		}
		cfg, err = l.mergeFromMap(cfg, raw)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("merge %s", path))
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadRaw reads a JSON or YAML layer as a generic map
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
		}
	default:
		if err := checkJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
		}
	}

	if err := parseDurations(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// mergeFromMap merges configuration from a raw map, only overriding fields present in the map
func (l *Loader) mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	if override == nil {
		return base, nil
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, override))
	if err != nil {
		return nil, err
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	return &merged, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}

	return result
}

// durationKeys lists the duration fields, as paths into the raw map
var durationKeys = [][]string{
	{"input", "reconnect", "initial_delay"},
	{"input", "reconnect", "max_delay"},
	{"broadcast", "write_timeout"},
	{"broadcast", "ping_interval"},
}

// parseDurations converts duration strings to nanoseconds for json unmarshaling
func parseDurations(raw map[string]any) error {
	for _, keys := range durationKeys {
		parent := raw
		for _, k := range keys[:len(keys)-1] {
			next, ok := parent[k].(map[string]any)
			if !ok {
				parent = nil
				break
			}
			parent = next
		}
		if parent == nil {
			continue
		}

		last := keys[len(keys)-1]
		s, ok := parent[last].(string)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", errors.ErrInvalidConfig, strings.Join(keys, "."), err)
		}
		parent[last] = d.Nanoseconds()
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	get := func(suffix string) (string, bool, error) {
		key := l.envPrefix + "_" + suffix
		val := os.Getenv(key)
		if err := checkEnvValue(key, val); err != nil {
			return "", false, errors.WrapInvalid(err, "Loader", "applyEnvOverrides", "environment check")
		}
		return val, val != "", nil
	}
	getInt := func(suffix string) (int, bool, error) {
		val, ok, err := get(suffix)
		if err != nil || !ok {
			return 0, false, err
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0, false, errors.WrapInvalid(
				fmt.Errorf("%w: %s_%s=%q", errors.ErrInvalidConfig, l.envPrefix, suffix, val),
				"Loader", "applyEnvOverrides", "integer parse")
		}
		return n, true, nil
	}

	strs := []struct {
		suffix string
		dst    *string
	}{
		{"LOG_LEVEL", &cfg.Log.Level},
		{"LOG_FORMAT", &cfg.Log.Format},
		{"INPUT_TYPE", &cfg.Input.Type},
		{"INPUT_PATH", &cfg.Input.Path},
		{"INPUT_URL", &cfg.Input.URL},
		{"NATS_URL", &cfg.Input.NATS.URL},
		{"NATS_SUBJECT", &cfg.Input.NATS.Subject},
	}
	for _, s := range strs {
		val, ok, err := get(s.suffix)
		if err != nil {
			return err
		}
		if ok {
			*s.dst = val
		}
	}

	if n, ok, err := getInt("STREAM_MAX_LINE_BYTES"); err != nil {
		return err
	} else if ok {
		cfg.Stream.MaxLineBytes = n
	}

	if n, ok, err := getInt("UDP_PORT"); err != nil {
		return err
	} else if ok {
		cfg.Input.UDP.Port = n
	}

	if n, ok, err := getInt("BROADCAST_PORT"); err != nil {
		return err
	} else if ok {
		cfg.Broadcast.Port = n
		cfg.Broadcast.Enabled = n > 0
	}

	if n, ok, err := getInt("METRICS_PORT"); err != nil {
		return err
	} else if ok {
		cfg.Metrics.Port = n
		cfg.Metrics.Enabled = n > 0
	}

	return nil
}

// String renders the configuration as YAML
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}
