// Package errors provides standardized error handling patterns for surfacestream.
//
// # Overview
//
// Errors fall into three classes: Transient (temporary, retryable), Invalid
// (bad input, non-retryable), and Fatal (unrecoverable, stop processing).
// Transports use the classification to decide whether to reconnect; the
// session uses it to label diagnostics.
//
// # Protocol errors
//
// The parser and store packages define typed errors (PathSyntaxError,
// LineSyntaxError, MessageParseError, UnknownSurfaceError, ...). Each of them
// matches one of the sentinels declared here:
//
//	if errors.Is(err, errors.ErrUnknownSurface) {
//	    // message referenced a surface that was never begun
//	}
//
// All protocol errors classify as Invalid. Kind returns a short label for
// metrics and logs.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: underlying error"
//
// Use the classified variants when the caller needs to make a decision:
//
//	if err := dial(); err != nil {
//	    return errors.WrapTransient(err, "WebSocketSource", "Run", "dial")
//	}
package errors
