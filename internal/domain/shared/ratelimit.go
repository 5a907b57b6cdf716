package shared

import (
	"context"
	"time"
)

// RateDecision is the outcome of one RateLimiter.Allow call
type RateDecision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long until the current window resets
	RetryAfter time.Duration
}

// RateLimiter counts calls per key in fixed windows
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateDecision, error)
}
