// Package file reads a JSON-Lines feed from a file, stdin or any io.Reader.
package file

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/input"
)

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 32 << 10

// Source streams a reader to a sink in fixed-size chunks.
type Source struct {
	name      string
	path      string
	reader    io.Reader
	chunkSize int
	logger    *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithChunkSize sets the read size.
func WithChunkSize(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Source reading path. "-" reads standard input.
func New(path string, opts ...Option) *Source {
	s := &Source{name: "file:" + path, path: path}
	if path == "-" {
		s.name = "stdin"
		s.reader = os.Stdin
	}
	return s.apply(opts)
}

// FromReader creates a Source over r.
func FromReader(name string, r io.Reader, opts ...Option) *Source {
	s := &Source{name: name, reader: r}
	return s.apply(opts)
}

func (s *Source) apply(opts []Option) *Source {
	s.chunkSize = DefaultChunkSize
	s.logger = slog.Default()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements input.Source.
func (s *Source) Name() string {
	return s.name
}

// Run implements input.Source. It returns nil at end of file.
func (s *Source) Run(ctx context.Context, sink input.Sink) error {
	r := s.reader
	if r == nil {
		f, err := os.Open(s.path)
		if err != nil {
			return errors.WrapInvalid(err, "file", "Run", "open "+s.path)
		}
		defer f.Close()
		r = f
	}

	s.logger.Debug("reading feed", "component", "input", "source", s.name)

	buf := make([]byte, s.chunkSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			total += int64(n)
			if ferr := sink.FeedBytes(buf[:n]); ferr != nil {
				return errors.Wrap(ferr, "file", "Run", "feed")
			}
		}
		if err == io.EOF {
			s.logger.Debug("feed finished", "component", "input", "source", s.name, "bytes", total)
			return nil
		}
		if err != nil {
			return errors.WrapTransient(err, "file", "Run", "read")
		}
	}
}
