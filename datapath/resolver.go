package datapath

import (
	"github.com/c360/surfacestream/metric"
	"github.com/c360/surfacestream/pkg/cache"
)

const (
	// DefaultCacheSize bounds the number of memoised parsed paths.
	DefaultCacheSize = 1024
	// DefaultMaxIndex is the largest slice index Set accepts.
	DefaultMaxIndex = 1<<16 - 1
)

// Resolver reads and writes trees, memoising parsed paths in an LRU cache.
// A Resolver is safe for concurrent use.
type Resolver struct {
	paths    *cache.LRU[Path]
	maxIndex int
}

// Option configures a Resolver.
type Option func(*resolverOptions)

type resolverOptions struct {
	cacheSize     int
	maxIndex      int
	metricsReg    *metric.MetricsRegistry
	metricsPrefix string
}

// WithCacheSize sets the parsed-path cache size. Values <= 0 disable caching.
func WithCacheSize(n int) Option {
	return func(o *resolverOptions) {
		o.cacheSize = n
	}
}

// WithMaxIndex sets the largest index Set may write. Values <= 0 select
// DefaultMaxIndex. Get is not limited.
func WithMaxIndex(n int) Option {
	return func(o *resolverOptions) {
		o.maxIndex = n
	}
}

// WithMetrics exports cache statistics under the given component prefix.
func WithMetrics(registry *metric.MetricsRegistry, prefix string) Option {
	return func(o *resolverOptions) {
		o.metricsReg = registry
		o.metricsPrefix = prefix
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) (*Resolver, error) {
	o := resolverOptions{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxIndex <= 0 {
		o.maxIndex = DefaultMaxIndex
	}

	r := &Resolver{maxIndex: o.maxIndex}
	if o.cacheSize > 0 {
		c, err := cache.New[Path](o.cacheSize, cache.WithMetrics(o.metricsReg, o.metricsPrefix))
		if err != nil {
			return nil, err
		}
		r.paths = c
	}
	return r, nil
}

var defaultResolver, _ = NewResolver()

// Lookup parses path, consulting the cache first. The returned Path is shared
// and must not be modified.
func (r *Resolver) Lookup(path string) (Path, error) {
	if path == "" || r.paths == nil {
		return parse(path)
	}
	if p, ok := r.paths.Get(path); ok {
		return p, nil
	}
	p, err := parse(path)
	if err != nil {
		return nil, err
	}
	r.paths.Add(path, p)
	return p, nil
}

// Get returns the value at path. found is false when any step is missing or
// not a container; a stored nil is reported as (nil, true).
func (r *Resolver) Get(tree any, path string) (value any, found bool, err error) {
	p, err := r.Lookup(path)
	if err != nil {
		return nil, false, err
	}
	value, found = GetPath(tree, p)
	return value, found, nil
}

// Set returns a new tree with value written at path. tree is not modified.
// An index above the resolver limit yields *IndexRangeError.
func (r *Resolver) Set(tree any, path string, value any) (any, error) {
	p, err := r.Lookup(path)
	if err != nil {
		return nil, err
	}
	for _, seg := range p {
		if seg.IsIndex && seg.Index > r.maxIndex {
			return nil, &IndexRangeError{Path: path, Index: seg.Index, Max: r.maxIndex}
		}
	}
	return SetPath(tree, p, value), nil
}

// Get reads path from tree using the package resolver.
func Get(tree any, path string) (any, bool, error) {
	return defaultResolver.Get(tree, path)
}

// Set writes value at path using the package resolver.
func Set(tree any, path string, value any) (any, error) {
	return defaultResolver.Set(tree, path, value)
}
