package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestRetrySucceedsAfterFailures verifies that Retry keeps calling until fn succeeds.
func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	cfg := &RetryConfig{MaxRetries: 5, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	res := Retry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	if res.LastError != nil {
		t.Fatalf("Expected success, got %v", res.LastError)
	}
	if res.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", res.Attempts)
	}
}

// TestRetryStopsOnNonRetryable verifies that a non-retryable error ends the loop at once.
func TestRetryStopsOnNonRetryable(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: -1, BaseDelay: time.Millisecond, RetryIf: DefaultRetryIf()}
	boom := errors.New("boom")

	res := Retry(context.Background(), cfg, func() error {
		return MarkNonRetryable(boom)
	})

	if res.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", res.Attempts)
	}
	if !errors.Is(res.LastError, boom) {
		t.Errorf("Expected wrapped boom error, got %v", res.LastError)
	}
}

// TestRetryHonoursContext verifies that cancellation interrupts the backoff sleep.
func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	cfg := &RetryConfig{MaxRetries: -1, BaseDelay: 5 * time.Millisecond, MaxDelay: 5 * time.Millisecond}
	res := Retry(ctx, cfg, func() error { return errors.New("down") })

	if !errors.Is(res.LastError, ErrContextCanceled) {
		t.Fatalf("Expected ErrContextCanceled, got %v", res.LastError)
	}
}

// TestRetryMaxRetries verifies the retry budget is respected.
func TestRetryMaxRetries(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond}
	res := Retry(context.Background(), cfg, func() error { return errors.New("down") })

	if res.Attempts != 3 {
		t.Errorf("Expected 3 attempts (1 + 2 retries), got %d", res.Attempts)
	}
	if !errors.Is(res.LastError, ErrMaxRetriesExceeded) {
		t.Errorf("Expected ErrMaxRetriesExceeded, got %v", res.LastError)
	}
}
