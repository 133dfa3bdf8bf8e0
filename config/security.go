package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Limits applied to configuration input.
const (
	maxConfigSize = 1 << 20
	maxJSONDepth  = 32
	maxEnvVarLen  = 4096
	maxPathLen    = 4096
)

// checkConfigPath rejects paths that are overlong, climb out of the working
// directory, or are not JSON or YAML.
func checkConfigPath(path string) error {
	switch {
	case path == "":
		return fmt.Errorf("empty config path")
	case len(path) > maxPathLen:
		return fmt.Errorf("config path longer than %d bytes", maxPathLen)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
	default:
		return fmt.Errorf("config file must be .json, .yaml or .yml: %s", path)
	}

	if filepath.IsAbs(path) {
		for _, part := range strings.Split(filepath.ToSlash(path), "/") {
			if part == ".." {
				return fmt.Errorf("config path must not contain ..: %s", path)
			}
		}
		return nil
	}
	if rel := filepath.Clean(path); rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("config path escapes the working directory: %s", path)
	}
	return nil
}

// readConfigFile reads a regular file of bounded size.
func readConfigFile(path string) ([]byte, error) {
	if err := checkConfigPath(path); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("%s is %d bytes, limit %d", path, info.Size(), maxConfigSize)
	}
	return os.ReadFile(path)
}

// checkEnvValue bounds an environment override.
func checkEnvValue(key, value string) error {
	if len(value) > maxEnvVarLen {
		return fmt.Errorf("%s longer than %d bytes", key, maxEnvVarLen)
	}
	if strings.IndexByte(value, 0) >= 0 {
		return fmt.Errorf("%s contains a NUL byte", key)
	}
	return nil
}

// checkJSONDepth walks the token stream and fails on nesting deeper than
// maxJSONDepth or on truncated input.
func checkJSONDepth(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			if depth != 0 {
				return fmt.Errorf("unexpected end of JSON")
			}
			return nil
		}
		if err != nil {
			return err
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
			if depth > maxJSONDepth {
				return fmt.Errorf("JSON nesting deeper than %d", maxJSONDepth)
			}
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
}
