package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// setupLogger builds the process logger. The binary passes stderr because
// stdout carries the final snapshot. Unknown levels fall back to info and
// unknown formats to JSON.
func setupLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl <= slog.LevelDebug}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("service", appName, "version", Version, "pid", os.Getpid())
}
