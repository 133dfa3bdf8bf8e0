package main

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/c360/surfacestream/input"
	"github.com/c360/surfacestream/protocol"
)

// linter checks every line of a feed against protocol.WireSchema.
type linter struct {
	out        io.Writer
	buf        []byte
	line       int
	violations int
}

// FeedBytes implements input.Sink.
func (l *linter) FeedBytes(data []byte) error {
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			l.buf = append(l.buf, data...)
			return nil
		}
		l.buf = append(l.buf, data[:i]...)
		data = data[i+1:]
		l.check()
	}
	return nil
}

func (l *linter) flush() {
	if len(l.buf) > 0 {
		l.check()
	}
}

func (l *linter) check() {
	l.line++
	line := bytes.TrimSpace(l.buf)
	l.buf = l.buf[:0]
	if len(line) == 0 {
		return
	}

	violations, err := protocol.ValidateSchema(line)
	if err != nil {
		l.violations++
		_, _ = fmt.Fprintf(l.out, "line %d: %v\n", l.line, err)
		return
	}
	for _, v := range violations {
		l.violations++
		_, _ = fmt.Fprintf(l.out, "line %d: %s: %s\n", l.line, v.Field, v.Description)
	}
}

// runLint validates the feed from src and reports violations to out. It
// returns the number of violations found.
func runLint(ctx context.Context, src input.Source, out io.Writer) (int, error) {
	l := &linter{out: out}
	err := src.Run(ctx, l)
	l.flush()
	if err != nil && ctx.Err() == nil {
		return l.violations, err
	}
	return l.violations, nil
}
