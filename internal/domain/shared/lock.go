package shared

import (
	"context"
	"time"
)

// Locker hands out short-lived exclusive locks keyed by name. It is used to
// keep two instances from walking the same store at the same time.
type Locker interface {
	// TryLock acquires the lock if free. The returned release func must be
	// called once; ok is false when another holder owns the lock.
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// NopLocker always grants the lock. Single-instance deployments rely on the
// in-process single-flight guard alone.
type NopLocker struct{}

// TryLock implements Locker
func (NopLocker) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}
