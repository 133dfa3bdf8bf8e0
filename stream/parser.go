package stream

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/metric"
	"github.com/c360/surfacestream/protocol"
)

// Stats counts what a Parser has seen.
type Stats struct {
	Lines    int64 // non-blank lines decoded
	Blank    int64
	Messages int64
	Errors   int64
}

// Parser is an incremental JSON-Lines decoder.
type Parser struct {
	onMessage func(protocol.Message)
	onError   func(error)

	buf        []byte
	line       int
	discarding bool
	closed     bool
	stats      Stats

	maxLine int
	logger  *slog.Logger
	metrics *metric.Metrics
	source  string
}

// NewParser creates a Parser. Either callback may be nil.
func NewParser(onMessage func(protocol.Message), onError func(error), opts ...Option) *Parser {
	p := &Parser{
		onMessage: onMessage,
		onError:   onError,
		logger:    slog.Default(),
		source:    "stream",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Feed appends a text chunk and processes every complete line in it.
func (p *Parser) Feed(chunk string) error {
	return p.FeedBytes([]byte(chunk))
}

// FeedBytes is Feed for byte transports. data is not retained.
func (p *Parser) FeedBytes(data []byte) error {
	if p.closed {
		return ErrClosed
	}

	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			p.buffer(data)
			return nil
		}

		seg := data[:i]
		data = data[i+1:]

		if p.discarding {
			// Tail of an overlong line that was already reported
			p.discarding = false
			continue
		}

		line := seg
		if len(p.buf) > 0 {
			p.buf = append(p.buf, seg...)
			line = p.buf
		}

		p.line++
		if p.maxLine > 0 && len(line) > p.maxLine {
			p.report(&LineTooLongError{Line: p.line, Limit: p.maxLine})
		} else {
			p.process(line)
		}
		p.buf = p.buf[:0]
	}
	return nil
}

func (p *Parser) buffer(data []byte) {
	if p.discarding {
		return
	}
	p.buf = append(p.buf, data...)
	if p.maxLine > 0 && len(p.buf) > p.maxLine {
		p.line++
		p.report(&LineTooLongError{Line: p.line, Limit: p.maxLine})
		p.buf = nil
		p.discarding = true
	}
}

// Close flushes a final unterminated line and makes the parser terminal.
func (p *Parser) Close() error {
	if p.closed {
		return ErrClosed
	}
	p.closed = true

	if !p.discarding && len(p.buf) > 0 {
		p.line++
		p.process(p.buf)
	}
	p.buf = nil
	p.discarding = false
	return nil
}

// Closed reports whether Close has been called.
func (p *Parser) Closed() bool {
	return p.closed
}

// Line returns the number of the last line read, counting blank lines. During
// an onMessage or onError callback it is the line being delivered.
func (p *Parser) Line() int {
	return p.line
}

// Stats returns a copy of the counters.
func (p *Parser) Stats() Stats {
	return p.stats
}

func (p *Parser) process(line []byte) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if len(bytes.TrimSpace(line)) == 0 {
		p.stats.Blank++
		return
	}
	p.stats.Lines++

	var raw any
	if err := json.Unmarshal(line, &raw); err != nil {
		p.report(&LineSyntaxError{Line: p.line, Raw: string(line), Err: err})
		return
	}

	msg, err := protocol.ParseMessage(raw)
	if err != nil {
		p.report(&LineError{Line: p.line, Err: err})
		return
	}

	p.stats.Messages++
	p.metrics.RecordMessageReceived(p.source, msg.Kind().String())
	if p.onMessage != nil {
		p.onMessage(msg)
	}
}

func (p *Parser) report(err error) {
	p.stats.Errors++
	p.metrics.RecordError("stream", errors.Kind(err))
	p.logger.Debug("stream line rejected",
		"component", "stream",
		"source", p.source,
		"line", LineOf(err),
		"error", err)
	if p.onError != nil {
		p.onError(err)
	}
}
