package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config defines retry behavior with linear backoff.
type Config struct {
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int
	// BaseDelay is multiplied by the attempt number before each retry.
	BaseDelay time.Duration
	// RateLimitMultiplier adds BaseDelay*RateLimitMultiplier of extra wait
	// after a rate-limited attempt.
	RateLimitMultiplier float64
	// OnRetry, when set, is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns the model-call policy: 3 attempts, 1s base delay,
// rate limits wait an extra 2x base.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:         3,
		BaseDelay:           time.Second,
		RateLimitMultiplier: 2,
	}
}

// ErrAttemptsExhausted wraps the last error once every attempt has failed.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

type exhaustedError struct {
	attempts int
	err      error
}

func (e *exhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.attempts, e.err)
}

func (e *exhaustedError) Unwrap() []error {
	return []error{ErrAttemptsExhausted, e.err}
}

// Delay is the wait after a failed attempt (1-based).
func Delay(cfg *Config, attempt int, err error) time.Duration {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	d := cfg.BaseDelay * time.Duration(attempt)
	if IsRateLimited(err) {
		d += time.Duration(float64(cfg.BaseDelay) * cfg.RateLimitMultiplier)
	}
	return d
}

// Do calls fn until it succeeds, returns a non-retryable error, or runs out of
// attempts. Waits are abandoned when ctx is done.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func(int) (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult is Do for functions that return a value. fn receives the
// 1-based attempt number. Non-retryable errors are returned unchanged so
// callers can still classify them.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func(attempt int) (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var zero T
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(attempt)
		if err == nil {
			return result, nil
		}
		if !IsRetryable(err) {
			return result, err
		}
		if attempt >= maxAttempts {
			return result, &exhaustedError{attempts: attempt, err: err}
		}

		delay := Delay(cfg, attempt, err)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}
}

// RetryableError is implemented by errors that declare their own retryability.
type RetryableError interface {
	error
	IsRetryable() bool
}

// RateLimitedError is implemented by errors that know they came from a rate
// limiter.
type RateLimitedError interface {
	error
	IsRateLimited() bool
}

var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"timeout",
	"timed out",
	"temporary failure",
	"i/o timeout",
	"network is unreachable",
	"500",
	"502",
	"503",
	"504",
	"service busy",
	"service unavailable",
	"overloaded",
}

var rateLimitPatterns = []string{
	"429",
	"rate limit",
	"too many requests",
}

// IsRetryable reports whether err is transient or rate-limited.
// Errors implementing RetryableError decide for themselves; anything else is
// matched against known transient messages.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var r RetryableError
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	return containsAny(errStr, transientPatterns) || containsAny(errStr, rateLimitPatterns)
}

// IsRateLimited reports whether err came from a rate limiter.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var r RateLimitedError
	if errors.As(err, &r) {
		return r.IsRateLimited()
	}

	return containsAny(strings.ToLower(err.Error()), rateLimitPatterns)
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
