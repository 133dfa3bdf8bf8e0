package stream

import (
	"fmt"

	"github.com/c360/surfacestream/errors"
)

// ErrClosed is returned by Feed and Close after the parser was closed.
var ErrClosed = errors.ErrClosed

// LineSyntaxError reports a line that is not valid JSON.
type LineSyntaxError struct {
	Line int
	Raw  string
	Err  error
}

func (e *LineSyntaxError) Error() string {
	return fmt.Sprintf("line %d: invalid JSON: %v", e.Line, e.Err)
}

func (e *LineSyntaxError) Unwrap() error { return e.Err }

// Is matches errors.ErrLineSyntax.
func (e *LineSyntaxError) Is(target error) bool {
	return target == errors.ErrLineSyntax
}

// LineError attaches a line number to a message-level failure.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// LineTooLongError reports a line exceeding the configured maximum. The rest
// of the line is discarded.
type LineTooLongError struct {
	Line  int
	Limit int
}

func (e *LineTooLongError) Error() string {
	return fmt.Sprintf("line %d: exceeds %d bytes", e.Line, e.Limit)
}

// Is matches errors.ErrLineTooLong.
func (e *LineTooLongError) Is(target error) bool {
	return target == errors.ErrLineTooLong
}

// LineOf returns the line number carried by a stream error, or 0.
func LineOf(err error) int {
	switch e := err.(type) {
	case *LineSyntaxError:
		return e.Line
	case *LineError:
		return e.Line
	case *LineTooLongError:
		return e.Line
	default:
		return 0
	}
}
