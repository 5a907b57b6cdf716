package cache

import (
	"context"
	"sync"
	"time"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/shared"
)

// cleanupInterval is how often expired delivery ids are swept
const cleanupInterval = 5 * time.Minute

// InMemoryDeliveryStore remembers webhook delivery ids in process memory.
// Deliveries are only deduplicated per instance.
type InMemoryDeliveryStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ shared.DeliveryStore = (*InMemoryDeliveryStore)(nil)

// NewInMemoryDeliveryStore creates the store and starts its sweeper
func NewInMemoryDeliveryStore() *InMemoryDeliveryStore {
	s := &InMemoryDeliveryStore{
		expires: make(map[string]time.Time),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweepLoop()
	return s
}

// MarkProcessed records key unless a live entry exists
func (s *InMemoryDeliveryStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expires[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.expires[key] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether key has a live entry
func (s *InMemoryDeliveryStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expires[key]
	return ok && s.now().Before(exp), nil
}

// Close stops the sweeper. Safe to call more than once.
func (s *InMemoryDeliveryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of stored ids, expired or not
func (s *InMemoryDeliveryStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expires)
}

func (s *InMemoryDeliveryStore) sweepLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryDeliveryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, exp := range s.expires {
		if !now.Before(exp) {
			delete(s.expires, key)
		}
	}
}

// InMemoryLocker is a process-local Locker with expiring holds
type InMemoryLocker struct {
	mu    sync.Mutex
	holds map[string]lockHold
	now   func() time.Time
}

type lockHold struct {
	token     uint64
	expiresAt time.Time
}

var _ shared.Locker = (*InMemoryLocker)(nil)

// NewInMemoryLocker creates an empty locker
func NewInMemoryLocker() *InMemoryLocker {
	return &InMemoryLocker{holds: make(map[string]lockHold), now: time.Now}
}

// TryLock implements shared.Locker
func (l *InMemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if h, ok := l.holds[key]; ok && now.Before(h.expiresAt) {
		return nil, false, nil
	}
	token := l.holds[key].token + 1
	l.holds[key] = lockHold{token: token, expiresAt: now.Add(ttl)}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// a hold that expired and was re-acquired belongs to someone else
			if h, ok := l.holds[key]; ok && h.token == token {
				delete(l.holds, key)
			}
		})
	}
	return release, true, nil
}
