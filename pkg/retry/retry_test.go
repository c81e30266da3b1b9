package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type classifiedError struct {
	retryable   bool
	rateLimited bool
}

func (e *classifiedError) Error() string       { return "classified" }
func (e *classifiedError) IsRetryable() bool   { return e.retryable }
func (e *classifiedError) IsRateLimited() bool { return e.rateLimited }

func fastConfig() *Config {
	return &Config{MaxAttempts: 3, BaseDelay: time.Millisecond, RateLimitMultiplier: 2}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxAttempts != 3 {
		t.Errorf("expected MaxAttempts=3, got %d", cfg.MaxAttempts)
	}
	if cfg.BaseDelay != time.Second {
		t.Errorf("expected BaseDelay=1s, got %v", cfg.BaseDelay)
	}
	if cfg.RateLimitMultiplier != 2 {
		t.Errorf("expected RateLimitMultiplier=2, got %v", cfg.RateLimitMultiplier)
	}
}

func TestDelayIsLinear(t *testing.T) {
	cfg := &Config{BaseDelay: 100 * time.Millisecond, RateLimitMultiplier: 2}
	transient := &classifiedError{retryable: true}
	limited := &classifiedError{retryable: true, rateLimited: true}

	if got := Delay(cfg, 1, transient); got != 100*time.Millisecond {
		t.Errorf("attempt 1: got %v", got)
	}
	if got := Delay(cfg, 2, transient); got != 200*time.Millisecond {
		t.Errorf("attempt 2: got %v", got)
	}
	if got := Delay(cfg, 1, limited); got != 300*time.Millisecond {
		t.Errorf("rate limited attempt 1: got %v", got)
	}
}

func TestDoWithResult_SuccessAfterTransientFailures(t *testing.T) {
	calls := 0
	var attempts []int
	got, err := DoWithResult(context.Background(), fastConfig(), func(attempt int) (string, error) {
		calls++
		attempts = append(attempts, attempt)
		if calls < 3 {
			return "", &classifiedError{retryable: true}
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got != "ok" {
		t.Errorf("expected ok, got %q", got)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if attempts[0] != 1 || attempts[2] != 3 {
		t.Errorf("attempt numbers should be 1-based, got %v", attempts)
	}
}

func TestDoWithResult_NonRetryableStopsImmediately(t *testing.T) {
	fatal := &classifiedError{retryable: false}
	calls := 0
	_, err := DoWithResult(context.Background(), fastConfig(), func(int) (int, error) {
		calls++
		return 0, fatal
	})

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if err != fatal {
		t.Errorf("non-retryable error should be returned unchanged, got %v", err)
	}
}

func TestDoWithResult_Exhausted(t *testing.T) {
	transient := &classifiedError{retryable: true}
	calls := 0
	var retries []int
	cfg := fastConfig()
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		retries = append(retries, attempt)
	}

	_, err := DoWithResult(context.Background(), cfg, func(int) (int, error) {
		calls++
		return 0, transient
	})

	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Errorf("expected ErrAttemptsExhausted, got %v", err)
	}
	var ce *classifiedError
	if !errors.As(err, &ce) {
		t.Error("last error should remain reachable through errors.As")
	}
	if len(retries) != 2 {
		t.Errorf("expected 2 retry callbacks, got %v", retries)
	}
}

func TestDoWithResult_ContextCancelledDuringWait(t *testing.T) {
	cfg := &Config{MaxAttempts: 3, BaseDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := DoWithResult(ctx, cfg, func(int) (int, error) {
			calls++
			return 0, &classifiedError{retryable: true}
		})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry loop did not observe cancellation")
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestDoWithResult_CancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := DoWithResult(ctx, fastConfig(), func(int) (int, error) {
		calls++
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) || calls != 0 {
		t.Errorf("expected no call and context.Canceled, got calls=%d err=%v", calls, err)
	}
}

func TestDo(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls == 1 {
			return errors.New("connection reset by peer")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("expected success on second call, got calls=%d err=%v", calls, err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"declares retryable", &classifiedError{retryable: true}, true},
		{"declares fatal even with 503 text", &classifiedError{retryable: false}, false},
		{"wrapped declaration", errors.Join(errors.New("ctx"), &classifiedError{retryable: true}), true},
		{"service unavailable text", errors.New("HTTP 503 Service Unavailable"), true},
		{"rate limit text", errors.New("Too Many Requests"), true},
		{"timeout text", errors.New("dial tcp: i/o timeout"), true},
		{"bad request", errors.New("400 bad request"), false},
		{"context cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	if !IsRateLimited(&classifiedError{retryable: true, rateLimited: true}) {
		t.Error("declared rate limit not detected")
	}
	if IsRateLimited(&classifiedError{retryable: true}) {
		t.Error("transient error reported as rate limited")
	}
	if !IsRateLimited(errors.New("status 429: slow down")) {
		t.Error("429 text not detected")
	}
	if IsRateLimited(nil) {
		t.Error("nil is not rate limited")
	}
}
