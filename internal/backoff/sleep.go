package backoff

import (
	"context"
	"time"
)

// Sleep waits for the delay after the given attempt, returning early with the
// context's error if it is cancelled.
func Sleep(ctx context.Context, p Policy, attempt int) error {
	return sleepFor(ctx, Delay(p, attempt))
}

func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
