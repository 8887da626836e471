package retry

import (
	"context"
	"time"
)

// BackoffStrategy decides how long to wait before the next attempt
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ConstantBackoff waits the same Delay before every retry. The zero value
// retries immediately.
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns a constant delay
func (cb ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Wait waits for the specified duration or until ctx is done. A zero delay
// still reports a context that is already done.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
