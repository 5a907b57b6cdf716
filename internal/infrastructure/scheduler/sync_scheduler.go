// Package scheduler drives periodic store synchronization.
//
// Each tick lists the active auto-sync stores of every tenant, keeps those
// whose sync interval has elapsed, and syncs them in parallel with a bounded
// worker count. One store's failure or panic never affects the others.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/logger"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/tenant"
)

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

// StoreLister lists the stores the scheduler considers. It is called with a
// system-scoped context.
type StoreLister interface {
	SystemListAutoSync(ctx context.Context) ([]integration.Store, error)
}

// StoreSyncer runs both walkers for one store and stamps its cursor
type StoreSyncer interface {
	SyncStore(ctx context.Context, store *integration.Store, trigger integration.SyncTrigger) error
}

// Clock returns the current time
type Clock func() time.Time

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds scheduler settings
type Config struct {
	// Schedule is a cron spec; descriptors such as "@every 1m" are accepted
	Schedule string
	// MaxParallel bounds how many stores sync at once
	MaxParallel int
	// RunTimeout bounds one store's sync
	RunTimeout time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Schedule:    "@every 1m",
		MaxParallel: 4,
		RunTimeout:  10 * time.Minute,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MaxParallel <= 0 || c.RunTimeout <= 0 {
		return ErrInvalidConfig
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("%w: schedule %q: %v", ErrInvalidConfig, c.Schedule, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// Outcome is the result of one store within a tick
type Outcome string

const (
	OutcomeSynced   Outcome = "SYNCED"
	OutcomeFailed   Outcome = "FAILED"
	OutcomeNotDue   Outcome = "NOT_DUE"
	OutcomePanicked Outcome = "PANICKED"
	// OutcomeNeedsReconnect marks a store skipped until its credentials
	// are rotated
	OutcomeNeedsReconnect Outcome = "NEEDS_RECONNECT"
)

// StoreStatus is the last scheduler outcome for one store
type StoreStatus struct {
	StoreID   uuid.UUID `json:"store_id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Outcome   Outcome   `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// TickResult summarizes one tick
type TickResult struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Listed    int           `json:"listed"`
	Due       int           `json:"due"`
	Synced    int           `json:"synced"`
	Failed    int           `json:"failed"`
	Error     string        `json:"error,omitempty"`
}

// Status is a snapshot of scheduler state
type Status struct {
	Running  bool          `json:"running"`
	Schedule string        `json:"schedule"`
	LastTick *TickResult   `json:"last_tick,omitempty"`
	NextTick *time.Time    `json:"next_tick,omitempty"`
	Stores   []StoreStatus `json:"stores"`
}

// ---------------------------------------------------------------------------
// SyncScheduler
// ---------------------------------------------------------------------------

// Option configures a SyncScheduler
type Option func(*SyncScheduler)

// WithClock injects the time source used for the interval gate
func WithClock(clock Clock) Option {
	return func(s *SyncScheduler) {
		s.clock = clock
	}
}

// SyncScheduler periodically syncs every due store
type SyncScheduler struct {
	config Config
	lister StoreLister
	syncer StoreSyncer
	clock  Clock
	logger *zap.Logger

	mu        sync.Mutex
	cron      *cron.Cron
	entryID   cron.EntryID
	isRunning bool

	statusMu sync.RWMutex
	lastTick *TickResult
	stores   map[uuid.UUID]StoreStatus
}

// New creates a scheduler
func New(config Config, lister StoreLister, syncer StoreSyncer, log *zap.Logger, opts ...Option) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &SyncScheduler{
		config: config,
		lister: lister,
		syncer: syncer,
		clock:  time.Now,
		logger: log.Named("scheduler"),
		stores: make(map[uuid.UUID]StoreStatus),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start registers the tick with cron and starts it. Ticks that would
// overlap a still-running tick are skipped.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrAlreadyRunning
	}

	cl := newCronLogger(s.logger)
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id, err := c.AddFunc(s.config.Schedule, func() {
		s.Tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	c.Start()

	s.cron = c
	s.entryID = id
	s.isRunning = true

	s.logger.Info("Sync scheduler started",
		zap.String("schedule", s.config.Schedule),
		zap.Int("max_parallel", s.config.MaxParallel),
		zap.Duration("run_timeout", s.config.RunTimeout),
	)
	return nil
}

// Stop stops scheduling and waits for a running tick until ctx ends
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	c := s.cron
	s.mu.Unlock()

	done := c.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// Tick runs one scheduling pass and returns its summary
func (s *SyncScheduler) Tick(ctx context.Context) (result TickResult) {
	start := time.Now()
	now := s.clock()
	result = TickResult{StartedAt: now}
	defer func() {
		result.Duration = time.Since(start)
		s.statusMu.Lock()
		r := result
		s.lastTick = &r
		s.statusMu.Unlock()
	}()

	stores, err := s.lister.SystemListAutoSync(tenant.WithSystemScope(ctx))
	if err != nil {
		s.logger.Error("Failed to list stores for sync", zap.Error(err))
		result.Error = err.Error()
		return result
	}
	result.Listed = len(stores)

	due := make([]integration.Store, 0, len(stores))
	for i := range stores {
		store := &stores[i]
		if store.NeedsReconnect {
			s.record(store, OutcomeNeedsReconnect, nil, now)
			continue
		}
		if store.DueForSync(now) {
			due = append(due, *store)
			continue
		}
		s.record(store, OutcomeNotDue, nil, now)
	}
	result.Due = len(due)
	if len(due) == 0 {
		return result
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.config.MaxParallel)
	for i := range due {
		store := &due[i]
		g.Go(func() error {
			outcome, err := s.syncOne(ctx, store)
			s.record(store, outcome, err, s.clock())
			mu.Lock()
			if err != nil {
				result.Failed++
			} else {
				result.Synced++
			}
			mu.Unlock()
			// errors are per store and must not cancel siblings
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("Sync tick finished",
		zap.Int("listed", result.Listed),
		zap.Int("due", result.Due),
		zap.Int("synced", result.Synced),
		zap.Int("failed", result.Failed),
	)
	return result
}

// syncOne runs one store with its own timeout, converting a panic into an
// error
func (s *SyncScheduler) syncOne(ctx context.Context, store *integration.Store) (outcome Outcome, err error) {
	runCtx, cancel := context.WithTimeout(tenant.ContextFor(ctx, store.TenantID), s.config.RunTimeout)
	defer cancel()
	runCtx, log := logger.WithStoreID(runCtx,
		s.logger.With(zap.String("tenant_id", store.TenantID.String())),
		store.ID.String())

	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomePanicked
			err = fmt.Errorf("%w: %v", ErrStorePanicked, r)
			log.Error("Store sync panicked",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)
		}
	}()

	if err := s.syncer.SyncStore(runCtx, store, integration.TriggerScheduler); err != nil {
		log.Error("Scheduled store sync failed", zap.Error(err))
		return OutcomeFailed, err
	}
	return OutcomeSynced, nil
}

func (s *SyncScheduler) record(store *integration.Store, outcome Outcome, err error, at time.Time) {
	st := StoreStatus{
		StoreID:   store.ID,
		TenantID:  store.TenantID,
		Outcome:   outcome,
		CheckedAt: at,
	}
	if err != nil {
		st.Error = err.Error()
	}
	s.statusMu.Lock()
	s.stores[store.ID] = st
	s.statusMu.Unlock()
}

// Status returns a snapshot of the scheduler state
func (s *SyncScheduler) Status() Status {
	s.mu.Lock()
	st := Status{Running: s.isRunning, Schedule: s.config.Schedule}
	if s.isRunning {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			st.NextTick = &next
		}
	}
	s.mu.Unlock()

	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	if s.lastTick != nil {
		t := *s.lastTick
		st.LastTick = &t
	}
	st.Stores = make([]StoreStatus, 0, len(s.stores))
	for _, ss := range s.stores {
		st.Stores = append(st.Stores, ss)
	}
	sort.Slice(st.Stores, func(i, j int) bool {
		return st.Stores[i].StoreID.String() < st.Stores[j].StoreID.String()
	})
	return st
}

// StatusForTenant returns the snapshot limited to one tenant's stores
func (s *SyncScheduler) StatusForTenant(tenantID uuid.UUID) Status {
	st := s.Status()
	filtered := st.Stores[:0]
	for _, ss := range st.Stores {
		if ss.TenantID == tenantID {
			filtered = append(filtered, ss)
		}
	}
	st.Stores = filtered
	return st
}
