package ratelimiter

import (
	"context"
	"testing"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
)

func TestRateLimiter_Unlimited(t *testing.T) {
	require := testutil.Require(t)

	var limiter *RateLimiter
	require.Equal(0, limiter.Limit())
	require.True(limiter.Allow())
	require.NoError(limiter.Wait(context.Background()))

	require.Nil(New(0))
}

func TestRateLimiter_Limit(t *testing.T) {
	require := testutil.Require(t)

	limiter := New(5)
	require.Equal(5, limiter.Limit())
	for i := 0; i < 5; i++ {
		require.True(limiter.Allow())
	}
	require.False(limiter.Allow())
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	require := testutil.Require(t)

	limiter := New(1)
	require.True(limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(limiter.Wait(ctx))
}
