package stream

import "github.com/c360/surfacestream/protocol"

// ParseJSONL parses a complete JSON-Lines document. It is equivalent to
// feeding text to a Parser and closing it.
func ParseJSONL(text string, opts ...Option) ([]protocol.Message, []error) {
	var (
		msgs []protocol.Message
		errs []error
	)
	p := NewParser(
		func(m protocol.Message) { msgs = append(msgs, m) },
		func(err error) { errs = append(errs, err) },
		opts...,
	)
	_ = p.Feed(text)
	_ = p.Close()
	return msgs, errs
}
