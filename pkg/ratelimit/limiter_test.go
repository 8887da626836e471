package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnlimited(t *testing.T) {
	for _, rpm := range []int{0, -5} {
		l := New(rpm)
		assert.IsType(t, Unlimited{}, l)

		start := time.Now()
		for i := 0; i < 100; i++ {
			require.NoError(t, l.Wait(context.Background()))
		}
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	}
}

func TestUnlimitedReportsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Unlimited{}.Wait(ctx), context.Canceled)
}

func TestTokenBucketPaces(t *testing.T) {
	// 1200 per minute is one request every 50ms
	l := New(1200)
	tb, ok := l.(*TokenBucket)
	require.True(t, ok)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, tb.Wait(context.Background()))
	}
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestTokenBucketAllow(t *testing.T) {
	tb := New(1).(*TokenBucket)

	assert.True(t, tb.Allow(), "burst of one is available immediately")
	assert.False(t, tb.Allow(), "second request within the minute is refused")
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	tb := New(1)
	require.NoError(t, tb.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	assert.Error(t, err)
}
