// Package stream decodes a chunked JSON-Lines feed into protocol messages.
//
// A Parser keeps the unterminated tail of the last chunk between calls, so a
// line may span any number of chunks and one chunk may hold many lines:
//
//	p := stream.NewParser(onMessage, onError)
//	for chunk := range chunks {
//		_ = p.Feed(chunk)
//	}
//	_ = p.Close() // flushes a final line without a trailing newline
//
// Per-line failures go to the error callback and never stop the stream:
// *LineSyntaxError for a line that is not JSON, *LineError wrapping a
// *protocol.MessageParseError for JSON that is not a message, and
// *LineTooLongError when WithMaxLineBytes is set and exceeded. Messages are
// delivered in line order. Feed and Close return only ErrClosed.
//
// A Parser is not safe for concurrent use. Callers feeding from several
// goroutines must serialise access.
package stream
