package cache

import (
	"context"
	"sync"
	"time"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/shared"
)

// InMemoryRateLimiter keeps fixed-window counters in process memory. Every
// replica counts on its own.
type InMemoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	now     func() time.Time
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

var _ shared.RateLimiter = (*InMemoryRateLimiter)(nil)

func NewInMemoryRateLimiter() *InMemoryRateLimiter {
	return &InMemoryRateLimiter{windows: make(map[string]*rateWindow), now: time.Now}
}

func (l *InMemoryRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (shared.RateDecision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}

	w, ok := l.windows[key]
	if !ok {
		w = &rateWindow{resetAt: now.Add(window)}
		l.windows[key] = w
	}
	w.count++
	return decide(w.count, limit, w.resetAt.Sub(now)), nil
}

func decide(count, limit int, retryAfter time.Duration) shared.RateDecision {
	return shared.RateDecision{
		Allowed:    count <= limit,
		Remaining:  max(limit-count, 0),
		RetryAfter: retryAfter,
	}
}
