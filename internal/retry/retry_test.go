package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 3, BaseDelay: time.Hour}, func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 5, BaseDelay: 0}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_ExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	lastErr := errors.New("attempt 3 failed")
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 3, BaseDelay: 0}, func(ctx context.Context) error {
		calls++
		if calls == 3 {
			return lastErr
		}
		return errors.New("earlier failure")
	})
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !errors.Is(err, lastErr) {
		t.Errorf("err = %v, want last error", err)
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), Policy{}, func(ctx context.Context) error {
		calls++
		return errors.New("nope")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ContextCancelStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{Attempts: 10, BaseDelay: time.Hour}, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("failing")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (cancel must stop the backoff sleep)", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDo_BackoffGrows(t *testing.T) {
	start := time.Now()
	calls := 0
	_ = Do(context.Background(), Policy{Attempts: 3, BaseDelay: 10 * time.Millisecond, Multiplier: 2}, func(ctx context.Context) error {
		calls++
		return errors.New("always")
	})
	elapsed := time.Since(start)
	// Delays: 10ms then 20ms.
	if elapsed < 30*time.Millisecond {
		t.Errorf("elapsed = %v, want at least 30ms of backoff", elapsed)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
