package input

import (
	"context"
)

// Sink receives raw chunks. A session or a stream parser satisfies it.
type Sink interface {
	FeedBytes(data []byte) error
}

// Source delivers a transport's bytes to a Sink.
//
// Run blocks until the stream ends (nil), ctx is done (ctx.Err()) or the
// transport fails for good. An error from the sink stops the source and is
// returned.
type Source interface {
	Name() string
	Run(ctx context.Context, sink Sink) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(data []byte) error

// FeedBytes calls f(data).
func (f SinkFunc) FeedBytes(data []byte) error {
	return f(data)
}

type recordSink struct {
	next Sink
}

// Records wraps sink so that every non-empty chunk is newline terminated.
func Records(sink Sink) Sink {
	return recordSink{next: sink}
}

func (r recordSink) FeedBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[len(data)-1] == '\n' {
		return r.next.FeedBytes(data)
	}
	buf := make([]byte, len(data)+1)
	copy(buf, data)
	buf[len(data)] = '\n'
	return r.next.FeedBytes(buf)
}
