package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound page requests
type Limiter interface {
	// Wait blocks until another request may be sent or ctx is done
	Wait(ctx context.Context) error
}

// New returns a limiter allowing requestsPerMinute requests per minute with
// a burst of one. A non-positive value disables pacing.
func New(requestsPerMinute int) Limiter {
	if requestsPerMinute <= 0 {
		return Unlimited{}
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &TokenBucket{limiter: rate.NewLimiter(rate.Every(every), 1)}
}

// TokenBucket is a Limiter backed by golang.org/x/time/rate
type TokenBucket struct {
	limiter *rate.Limiter
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

// Allow reports whether a request may be sent now without waiting
func (tb *TokenBucket) Allow() bool {
	return tb.limiter.Allow()
}

// Unlimited never blocks
type Unlimited struct{}

// Wait returns immediately unless ctx is already done
func (Unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}
