// Package retry provides exponential backoff retry logic for transient
// transport failures.
package retry

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/c360/surfacestream/errors"
)

var (
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NonRetryableError wraps errors that should not be retried
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error to indicate it should not be retried
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err is marked non-retryable, or is classified
// Invalid or Fatal by the errors package.
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	if stderrors.As(err, &nre) {
		return true
	}
	var ce *errors.ClassifiedError
	if stderrors.As(err, &ce) {
		return ce.Class != errors.ErrorTransient
	}
	return false
}

// Config provides retry configuration
type Config struct {
	MaxAttempts  int           // Total attempts; a negative value retries until ctx is done
	InitialDelay time.Duration // Initial delay between attempts
	MaxDelay     time.Duration // Maximum delay between attempts
	Multiplier   float64       // Backoff multiplier (typically 2.0)
	AddJitter    bool          // Add up to 25% randomness to each delay

	// OnRetry, when set, is called before each backoff sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns sensible defaults for retry operations
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

func (cfg Config) normalized() (Config, error) {
	if cfg.InitialDelay < 0 || cfg.MaxDelay < 0 || cfg.Multiplier < 0 {
		return cfg, stderrors.New("retry: negative delay or multiplier")
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.Multiplier > 1000 {
		cfg.Multiplier = 1000
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		return cfg, stderrors.New("retry: MaxDelay must be >= InitialDelay")
	}
	return cfg, nil
}

// Backoff returns the delay before attempt n+1, without jitter.
func (cfg Config) Backoff(n int) time.Duration {
	cfg, err := cfg.normalized()
	if err != nil {
		return 0
	}
	delay := float64(cfg.InitialDelay)
	for i := 1; i < n; i++ {
		delay *= cfg.Multiplier
		if delay >= float64(cfg.MaxDelay) {
			return cfg.MaxDelay
		}
	}
	return time.Duration(delay)
}

// Do executes fn with exponential backoff retry. fn receives the 1-based
// attempt number.
func Do(ctx context.Context, cfg Config, fn func(attempt int) error) error {
	cfg, err := cfg.normalized()
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; cfg.MaxAttempts < 0 || attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsNonRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled before attempt %d: %w", attempt+1, ctx.Err())
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.Backoff(attempt)
		if cfg.AddJitter && delay >= 4 {
			randMu.Lock()
			delay += time.Duration(randSource.Int63n(int64(delay / 4)))
			randMu.Unlock()
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled during backoff for attempt %d: %w", attempt+1, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// DoWithResult executes fn with retry and returns both result and error
func DoWithResult[T any](ctx context.Context, cfg Config, fn func(attempt int) (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func(attempt int) error {
		var innerErr error
		result, innerErr = fn(attempt)
		return innerErr
	})
	return result, err
}
