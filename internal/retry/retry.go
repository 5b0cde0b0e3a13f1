package retry

import (
	"context"
	"time"
)

// Policy controls how Do re-attempts a failing operation.
type Policy struct {
	Attempts   int           // Total attempts including the first (minimum 1)
	BaseDelay  time.Duration // Delay before the second attempt
	Multiplier float64       // Applied to the delay after each failed attempt
}

// Do runs fn until it succeeds, the policy's attempts are exhausted, or the
// context is cancelled. The delay between attempts grows exponentially from
// BaseDelay by Multiplier. The last error is returned when all attempts fail.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	multiplier := policy.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	var err error
	delay := policy.BaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if !sleep(ctx, delay) {
			return ctx.Err()
		}
		delay = time.Duration(float64(delay) * multiplier)
	}
	return err
}

// sleep waits for d or until ctx is cancelled, reporting whether the full
// delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
