package pipeline

import (
	"context"
	"time"
)

// SleepInterruptible waits for d or until ctx is cancelled, whichever comes
// first. It returns false when the wait was cut short by cancellation, so
// backoff delays never hold up shutdown.
func SleepInterruptible(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
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
