package integration

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/domain/shared"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/logger"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/tenant"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/telemetry"
)

// DefaultLockTTL bounds how long a cross-instance sync lock may be held
const DefaultLockTTL = 15 * time.Minute

// DefaultRunTimeout bounds one shared walk
const DefaultRunTimeout = 10 * time.Minute

// CoordinatorConfig holds coordinator settings
type CoordinatorConfig struct {
	// LockTTL is the lifetime of the distributed per-store lock
	LockTTL    time.Duration
	// RunTimeout bounds a walk independently of the callers waiting on it
	RunTimeout time.Duration
}

// flight is one walk shared by every caller waiting on it. Its context
// belongs to no single caller and is cancelled once the last waiter leaves.
type flight struct {
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// SyncCoordinator is the single entry point for running walkers. The
// scheduler, webhooks and manual triggers all go through it, so at most one
// walk per (store, entity) runs at a time: concurrent callers in this
// process share the running walk, and the locker keeps other instances out.
type SyncCoordinator struct {
	orders   Walker
	products Walker
	stores   integration.StoreRepository
	locker   shared.Locker
	events   integration.SyncEventPublisher
	metrics  *telemetry.SyncMetrics
	config   CoordinatorConfig
	clock    Clock
	logger   *zap.Logger

	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flight
	nextGen uint64
}

// CoordinatorOption configures a SyncCoordinator
type CoordinatorOption func(*SyncCoordinator)

// WithLocker sets the cross-instance lock
func WithLocker(l shared.Locker) CoordinatorOption {
	return func(c *SyncCoordinator) {
		if l != nil {
			c.locker = l
		}
	}
}

// WithEventPublisher sets where sync events go
func WithEventPublisher(p integration.SyncEventPublisher) CoordinatorOption {
	return func(c *SyncCoordinator) {
		if p != nil {
			c.events = p
		}
	}
}

// WithSyncMetrics sets the metrics recorder
func WithSyncMetrics(m *telemetry.SyncMetrics) CoordinatorOption {
	return func(c *SyncCoordinator) {
		c.metrics = m
	}
}

// WithCoordinatorClock injects the time source
func WithCoordinatorClock(clock Clock) CoordinatorOption {
	return func(c *SyncCoordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewSyncCoordinator creates a coordinator around the two walkers
func NewSyncCoordinator(
	orders, products Walker,
	stores integration.StoreRepository,
	config CoordinatorConfig,
	log *zap.Logger,
	opts ...CoordinatorOption,
) *SyncCoordinator {
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = DefaultRunTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &SyncCoordinator{
		orders:   orders,
		products: products,
		stores:   stores,
		locker:   shared.NopLocker{},
		events:   integration.NopEventPublisher{},
		config:   config,
		clock:    time.Now,
		logger:   log.Named("sync"),
		flights:  make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunOrders runs the order walker for store
func (c *SyncCoordinator) RunOrders(ctx context.Context, store *integration.Store, trigger integration.SyncTrigger) (*integration.SyncReport, error) {
	return c.run(ctx, store, integration.SyncEntityOrders, trigger, c.orders)
}

// RunProducts runs the product walker for store
func (c *SyncCoordinator) RunProducts(ctx context.Context, store *integration.Store, trigger integration.SyncTrigger) (*integration.SyncReport, error) {
	return c.run(ctx, store, integration.SyncEntityProducts, trigger, c.products)
}

// SyncStore runs orders then products and reports the first abort. It
// satisfies the scheduler's StoreSyncer.
func (c *SyncCoordinator) SyncStore(ctx context.Context, store *integration.Store, trigger integration.SyncTrigger) error {
	_, err := c.SyncStoreReports(ctx, store, trigger)
	return err
}

// SyncStoreReports runs orders then products and returns every report
// produced. Products are not attempted when the order walk aborted.
//
// The order walker stamps the cursor itself. When order sync is disabled
// for the store the cursor is stamped here after the product walk, so the
// interval gate still advances.
func (c *SyncCoordinator) SyncStoreReports(ctx context.Context, store *integration.Store, trigger integration.SyncTrigger) ([]*integration.SyncReport, error) {
	reports := make([]*integration.SyncReport, 0, 2)

	// a caller that stopped waiting gets no report
	orders, err := c.RunOrders(ctx, store, trigger)
	if orders != nil {
		reports = append(reports, orders)
	}
	if err != nil {
		return reports, err
	}

	products, err := c.RunProducts(ctx, store, trigger)
	if products != nil {
		reports = append(reports, products)
	}
	if err != nil {
		return reports, err
	}

	if orders.SkippedBecause(integration.SkipReasonDisabled) && !products.SkippedBecause(integration.SkipReasonLocked) {
		ctx = tenant.ContextFor(ctx, store.TenantID)
		if err := c.stores.MarkSynced(ctx, store.ID, orders.StartedAt); err != nil {
			return reports, err
		}
		at := orders.StartedAt
		store.LastSyncAt = &at
		store.NeedsReconnect = false
	}
	return reports, nil
}

func (c *SyncCoordinator) run(
	ctx context.Context,
	store *integration.Store,
	entity integration.SyncEntity,
	trigger integration.SyncTrigger,
	walker Walker,
) (*integration.SyncReport, error) {
	key := store.ID.String() + ":" + entity.String()
	f := c.join(ctx, key)
	defer c.leave(key, f)

	ch := c.group.DoChan(f.key, func() (any, error) {
		return c.runExclusive(f.ctx, store, entity, trigger, walker, key)
	})
	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("Joined running sync",
				zap.String("store_id", store.ID.String()),
				zap.String("entity", entity.String()),
				zap.String("trigger", trigger.String()),
			)
		}
		report, _ := res.Val.(*integration.SyncReport)
		return report, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// join attaches the caller to the live flight for key, starting one when
// none is running. The flight keeps ctx's values but not its cancellation.
func (c *SyncCoordinator) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.flights[key]
	if !ok {
		c.nextGen++
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.RunTimeout)
		f = &flight{
			key:    key + "#" + strconv.FormatUint(c.nextGen, 10),
			ctx:    runCtx,
			cancel: cancel,
		}
		c.flights[key] = f
	}
	f.waiters++
	return f
}

// leave detaches a caller; the last one out cancels the flight
func (c *SyncCoordinator) leave(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
	}
}

func (c *SyncCoordinator) runExclusive(
	ctx context.Context,
	store *integration.Store,
	entity integration.SyncEntity,
	trigger integration.SyncTrigger,
	walker Walker,
	key string,
) (*integration.SyncReport, error) {
	ctx = tenant.ContextFor(ctx, store.TenantID)
	if logger.GetStoreID(ctx) == "" {
		ctx, _ = logger.WithStoreID(ctx, c.logger, store.ID.String())
	}
	log := logger.WithLogger(ctx, c.logger).With(
		zap.String("entity", entity.String()),
		zap.String("trigger", trigger.String()),
	)

	release, ok, err := c.locker.TryLock(ctx, "sync:"+key, c.config.LockTTL)
	switch {
	case err != nil:
		// lock backend errors fail open
		log.Warn("Sync lock unavailable, continuing without it", zap.Error(err))
		release = func() {}
	case !ok:
		now := c.clock()
		report := integration.NewSyncReport(store, entity, now)
		report.Skip(now, integration.SkipReasonLocked)
		log.Info("Sync already running on another instance")
		c.metrics.RecordRun(ctx, report, trigger)
		return report, nil
	}
	defer release()

	var (
		report *integration.SyncReport
		runErr error
	)
	labels := telemetry.SyncLabels(store.TenantID.String(), store.ID.String(), entity.String(), trigger.String())
	telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
		report, runErr = walker.Run(ctx, store)
	})

	c.afterRun(ctx, store, report, runErr, trigger)
	return report, runErr
}

func (c *SyncCoordinator) afterRun(
	ctx context.Context,
	store *integration.Store,
	report *integration.SyncReport,
	runErr error,
	trigger integration.SyncTrigger,
) {
	c.metrics.RecordRun(ctx, report, trigger)

	if integration.IsAuthFailure(runErr) {
		if err := c.stores.MarkNeedsReconnect(ctx, store.ID); err != nil {
			logger.WithLogger(ctx, c.logger).Error("Failed to flag store for reconnect", zap.Error(err))
		} else {
			store.NeedsReconnect = true
		}
		c.events.Publish(ctx, integration.NewSyncEvent(integration.EventReconnectRequired, store.TenantID, store.ID))
	}

	if report == nil || report.Status == integration.SyncStatusSkipped {
		return
	}
	eventType := integration.EventSyncCompleted
	if report.Status == integration.SyncStatusFailed {
		eventType = integration.EventSyncFailed
	}
	event := integration.NewSyncEvent(eventType, store.TenantID, store.ID)
	event.Report = report
	event.Attributes = map[string]any{"trigger": trigger.String()}
	c.events.Publish(ctx, event)
}
