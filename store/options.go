package store

import (
	"log/slog"

	"github.com/c360/surfacestream/datapath"
	"github.com/c360/surfacestream/metric"
)

// Option configures a Store.
type Option func(*Store)

// WithReporter sets the callback receiving every error raised by Apply,
// including errors of queued nested applies that have no caller to return to.
func WithReporter(fn func(error)) Option {
	return func(s *Store) {
		s.reporter = fn
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records applies, errors and snapshot gauges in the registry's
// core metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *Store) {
		if registry != nil {
			s.metrics = registry.CoreMetrics()
		}
	}
}

// WithPathCacheSize sets the number of parsed data paths memoised by the
// store. Zero or less disables the cache.
func WithPathCacheSize(n int) Option {
	return func(s *Store) {
		s.pathOpts = append(s.pathOpts, datapath.WithCacheSize(n))
	}
}

// WithMaxIndex sets the largest slice index a data-model update may write.
// Larger indices are rejected with *datapath.IndexRangeError.
func WithMaxIndex(n int) Option {
	return func(s *Store) {
		s.pathOpts = append(s.pathOpts, datapath.WithMaxIndex(n))
	}
}
