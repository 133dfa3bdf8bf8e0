package stream

import (
	"log/slog"

	"github.com/c360/surfacestream/metric"
)

// Option configures a Parser.
type Option func(*Parser)

// WithMaxLineBytes bounds the length of a single line. Zero means unbounded.
func WithMaxLineBytes(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxLine = n
		}
	}
}

// WithLogger sets the logger used for per-line debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records decoded messages and line errors in the registry's
// core metrics, labelled with source.
func WithMetrics(registry *metric.MetricsRegistry, source string) Option {
	return func(p *Parser) {
		if registry != nil {
			p.metrics = registry.CoreMetrics()
			p.source = source
		}
	}
}
