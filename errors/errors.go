package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass tells a caller what to do with an error.
type ErrorClass int

const (
	// ErrorTransient may succeed if retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid will fail the same way again
	ErrorInvalid
	// ErrorFatal should stop processing
	ErrorFatal
)

func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	}
	return "unknown"
}

// Protocol sentinels. The typed errors in datapath, protocol, stream and
// store match these through errors.Is.
var (
	ErrPathSyntax     = errors.New("path syntax error")
	ErrLineSyntax     = errors.New("line syntax error")
	ErrMessageParse   = errors.New("message parse error")
	ErrUnknownSurface = errors.New("unknown surface")
	ErrLineTooLong    = errors.New("line too long")
	ErrCycle          = errors.New("component cycle")
)

var protocolErrors = []struct {
	err  error
	kind string
}{
	{ErrPathSyntax, "path_syntax"},
	{ErrLineTooLong, "line_too_long"},
	{ErrLineSyntax, "line_syntax"},
	{ErrMessageParse, "message_parse"},
	{ErrUnknownSurface, "unknown_surface"},
	{ErrCycle, "cycle"},
}

// Runtime sentinels.
var (
	ErrClosed            = errors.New("already closed")
	ErrConnectionLost    = errors.New("connection lost")
	ErrConnectionTimeout = errors.New("connection timeout")
	ErrInvalidData       = errors.New("invalid data")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrMissingConfig     = errors.New("missing required configuration")
)

// ClassifiedError carries a class and where the error happened.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Component string
	Operation string
}

func (ce *ClassifiedError) Error() string {
	return ce.Err.Error()
}

func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// Wrap adds context in the form "component.method: action failed: err".
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

func wrapClass(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{
		Class:     class,
		Err:       Wrap(err, component, method, action),
		Component: component,
		Operation: method,
	}
}

// WrapTransient wraps err as transient.
func WrapTransient(err error, component, method, action string) error {
	return wrapClass(ErrorTransient, err, component, method, action)
}

// WrapInvalid wraps err as invalid.
func WrapInvalid(err error, component, method, action string) error {
	return wrapClass(ErrorInvalid, err, component, method, action)
}

// WrapFatal wraps err as fatal.
func WrapFatal(err error, component, method, action string) error {
	return wrapClass(ErrorFatal, err, component, method, action)
}

// IsProtocol reports whether err matches a protocol sentinel.
func IsProtocol(err error) bool {
	for _, p := range protocolErrors {
		if errors.Is(err, p.err) {
			return true
		}
	}
	return false
}

// Classify returns the class of err. The outermost ClassifiedError wins;
// otherwise sentinels decide, then a few message heuristics for errors from
// the network stack. Unknown errors are transient.
func Classify(err error) ErrorClass {
	var ce *ClassifiedError
	switch {
	case err == nil:
		return ErrorTransient
	case errors.As(err, &ce):
		return ce.Class
	case IsProtocol(err), errors.Is(err, ErrInvalidData):
		return ErrorInvalid
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrMissingConfig):
		return ErrorFatal
	case errors.Is(err, ErrConnectionLost), errors.Is(err, ErrConnectionTimeout),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrorTransient
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"panic", "out of memory", "fatal"} {
		if strings.Contains(msg, s) {
			return ErrorFatal
		}
	}
	return ErrorTransient
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return err != nil && Classify(err) == ErrorTransient
}

// IsInvalid reports whether err is caused by bad input.
func IsInvalid(err error) bool {
	return err != nil && Classify(err) == ErrorInvalid
}

// IsFatal reports whether err should stop processing.
func IsFatal(err error) bool {
	return err != nil && Classify(err) == ErrorFatal
}

// Kind returns a short stable label for metrics and diagnostics: the
// protocol kind when there is one, the class otherwise.
func Kind(err error) string {
	if err == nil {
		return "none"
	}
	for _, p := range protocolErrors {
		if errors.Is(err, p.err) {
			return p.kind
		}
	}
	return Classify(err).String()
}
