package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/kbukum/prefkit/errors"
)

func fastConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, BackoffFactor: 2.0}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), DefaultRetryConfig(), func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil || result != "ok" || calls != 1 {
		t.Errorf("got %q, %v after %d calls", result, err, calls)
	}
}

func TestRetry_SucceedsAfterRetry(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastConfig(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, stderrors.New("temporary")
		}
		return 42, nil
	})
	if err != nil || result != 42 || calls != 3 {
		t.Errorf("got %d, %v after %d calls", result, err, calls)
	}
}

func TestRetry_ExceedsMaxAttempts(t *testing.T) {
	calls := 0
	want := stderrors.New("persistent")
	err := RetryFunc(context.Background(), fastConfig(), func() error {
		calls++
		return want
	})
	if !stderrors.Is(err, want) || calls != 3 {
		t.Errorf("got %v after %d calls", err, calls)
	}
}

func TestRetry_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Retry(ctx, fastConfig(), func() (int, error) {
		calls++
		return 0, nil
	})
	if !stderrors.Is(err, context.Canceled) || calls != 0 {
		t.Errorf("got %v after %d calls", err, calls)
	}
}

func TestReloadRetryConfig_OnlyRetryable(t *testing.T) {
	cfg := ReloadRetryConfig()
	cfg.InitialBackoff = time.Millisecond

	calls := 0
	err := RetryFunc(context.Background(), cfg, func() error {
		calls++
		return errors.WriteFailed("x.json", nil)
	})
	if err == nil || calls != 1 {
		t.Errorf("write failures must not be retried: %v after %d calls", err, calls)
	}

	calls = 0
	retries := 0
	cfg.OnRetry = func(int, error, time.Duration) { retries++ }
	err = RetryFunc(context.Background(), cfg, func() error {
		calls++
		if calls < 2 {
			return errors.ParseFailed("x.json", nil)
		}
		return nil
	})
	if err != nil || calls != 2 || retries != 1 {
		t.Errorf("parse failures should be retried: %v, calls=%d retries=%d", err, calls, retries)
	}
}

func TestCalculateBackoff_Capped(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, BackoffFactor: 10}
	if got := calculateBackoff(1, cfg); got != time.Second {
		t.Errorf("first backoff = %v", got)
	}
	if got := calculateBackoff(4, cfg); got != 3*time.Second {
		t.Errorf("capped backoff = %v", got)
	}
}
