// Package retry provides exponential backoff retry logic for transient failures.
//
// Ingress sources use it to redial a WebSocket or HTTP stream after the
// connection drops:
//
//	err := retry.Do(ctx, cfg, func(attempt int) error {
//	    return src.connectAndRead(ctx, sink)
//	})
//
// Errors wrapped with NonRetryable, or classified Invalid/Fatal by the errors
// package, stop the loop immediately. A negative MaxAttempts retries until the
// context is cancelled.
package retry
