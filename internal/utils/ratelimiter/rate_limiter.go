package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

type (
	// RateLimiter caps outgoing requests per second. A nil limiter is unlimited.
	RateLimiter struct {
		limiter *rate.Limiter
	}
)

func New(rps int) *RateLimiter {
	if rps <= 0 {
		return nil
	}

	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), rps)}
}

// Wait blocks until a request may proceed or ctx is done.
func (l *RateLimiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	return l.limiter.Wait(ctx)
}

func (l *RateLimiter) Allow() bool {
	if l == nil {
		return true
	}

	return l.limiter.Allow()
}

// Limit returns the configured requests per second, or zero when unlimited.
func (l *RateLimiter) Limit() int {
	if l == nil {
		return 0
	}

	return int(l.limiter.Limit())
}
