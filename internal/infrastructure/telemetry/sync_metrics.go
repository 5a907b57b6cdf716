package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
)

// SyncMetrics records store sync activity. A nil *SyncMetrics is valid and
// records nothing, so services can run without a meter.
type SyncMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	runsTotal       *Counter
	recordsTotal    *Counter
	runDuration     *Histogram
	webhooksTotal   *Counter
	stockPushTotal  *Counter
	lowStockCount   *Gauge
	reconnectNeeded *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	healthProvider SyncHealthProvider
}

// SyncHealthProvider reports point-in-time sync health for periodic
// collection without the telemetry layer depending on repositories.
type SyncHealthProvider interface {
	// LowStockCounts returns products at or below their threshold per store
	LowStockCounts(ctx context.Context) (map[StoreKey]int64, error)
	// ReconnectCounts returns stores awaiting new credentials per tenant
	ReconnectCounts(ctx context.Context) (map[uuid.UUID]int64, error)
}

// StoreKey identifies a store together with its tenant
type StoreKey struct {
	TenantID uuid.UUID
	StoreID  uuid.UUID
}

// SyncMetricsConfig holds configuration for sync metrics.
type SyncMetricsConfig struct {
	Meter          metric.Meter
	Logger         *zap.Logger
	HealthProvider SyncHealthProvider
}

// SyncRunBuckets are bucket boundaries for walker run duration (seconds).
var SyncRunBuckets = []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600}

// NewSyncMetrics creates the sync instruments on cfg.Meter.
func NewSyncMetrics(cfg SyncMetricsConfig) (*SyncMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SyncMetrics{
		meter:          cfg.Meter,
		logger:         logger,
		stopChan:       make(chan struct{}),
		healthProvider: cfg.HealthProvider,
	}

	in := newInstruments(cfg.Meter)
	sm.runsTotal = in.counter("woowms_sync_runs_total", "Walker runs by entity, status and trigger", "{runs}")
	sm.recordsTotal = in.counter("woowms_sync_records_total", "Records processed by walkers", "{records}")
	sm.runDuration = in.histogram("woowms_sync_run_duration_seconds", "Walker run duration", SyncRunBuckets)
	sm.webhooksTotal = in.counter("woowms_webhook_deliveries_total", "Webhook deliveries by topic and outcome", "{deliveries}")
	sm.stockPushTotal = in.counter("woowms_stock_push_total", "Stock push-back attempts by outcome", "{pushes}")
	sm.lowStockCount = in.gauge("woowms_low_stock_products", "Products at or below their low stock threshold", "{products}")
	sm.reconnectNeeded = in.gauge("woowms_stores_needing_reconnect", "Stores whose credentials were rejected", "{stores}")
	if err := in.err(); err != nil {
		return nil, err
	}
	return sm, nil
}

// RecordRun records a finished walker run
func (sm *SyncMetrics) RecordRun(ctx context.Context, report *integration.SyncReport, trigger integration.SyncTrigger) {
	if sm == nil || report == nil {
		return
	}
	tenantAttr := AttrTenantID.String(report.TenantID.String())
	entityAttr := AttrSyncEntity.String(report.Entity.String())

	sm.runsTotal.Inc(ctx, tenantAttr, entityAttr,
		AttrSyncStatus.String(report.Status.String()),
		AttrSyncTrigger.String(trigger.String()),
	)
	if report.Status == integration.SyncStatusSkipped {
		return
	}
	sm.runDuration.RecordDuration(ctx, report.Duration(), entityAttr)

	for result, n := range map[string]int{
		"created": report.Created,
		"updated": report.Updated,
		"failed":  report.Failed,
	} {
		if n > 0 {
			sm.recordsTotal.Add(ctx, int64(n), tenantAttr, entityAttr, AttrSyncResult.String(result))
		}
	}
}

// RecordWebhook records one webhook delivery outcome
func (sm *SyncMetrics) RecordWebhook(ctx context.Context, topic, outcome string) {
	if sm == nil {
		return
	}
	sm.webhooksTotal.Inc(ctx, AttrWebhookTopic.String(topic), AttrSyncResult.String(outcome))
}

// RecordStockPush records one push-back attempt
func (sm *SyncMetrics) RecordStockPush(ctx context.Context, tenantID uuid.UUID, outcome string) {
	if sm == nil {
		return
	}
	sm.stockPushTotal.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrSyncResult.String(outcome))
}

// StartPeriodicCollection collects the health gauges every interval
// (default 5 minutes) until Stop is called or ctx ends.
func (sm *SyncMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if sm == nil {
		return
	}
	sm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go sm.runPeriodicCollection(ctx, interval)
	})
}

func (sm *SyncMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sm.collectHealth(ctx)
	for {
		select {
		case <-sm.stopChan:
			sm.logger.Info("Stopping periodic sync metrics collection")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.collectHealth(ctx)
		}
	}
}

func (sm *SyncMetrics) collectHealth(ctx context.Context) {
	if sm.healthProvider == nil {
		sm.logger.Debug("No health provider configured, skipping sync health collection")
		return
	}

	lowStock, err := sm.healthProvider.LowStockCounts(ctx)
	if err != nil {
		sm.logger.Warn("Failed to collect low stock counts", zap.Error(err))
	} else {
		for key, n := range lowStock {
			sm.lowStockCount.Record(ctx, n,
				AttrTenantID.String(key.TenantID.String()),
				AttrStoreID.String(key.StoreID.String()),
			)
		}
	}

	reconnect, err := sm.healthProvider.ReconnectCounts(ctx)
	if err != nil {
		sm.logger.Warn("Failed to collect reconnect counts", zap.Error(err))
		return
	}
	for tenantID, n := range reconnect {
		sm.reconnectNeeded.Record(ctx, n, AttrTenantID.String(tenantID.String()))
	}
}

// Stop stops the periodic collection.
func (sm *SyncMetrics) Stop() {
	if sm == nil {
		return
	}
	sm.stopOnce.Do(func() {
		close(sm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSyncMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// Sync attribute keys
var (
	AttrStoreID      = attribute.Key("store_id")
	AttrSyncEntity   = attribute.Key("entity")
	AttrSyncStatus   = attribute.Key("status")
	AttrSyncTrigger  = attribute.Key("trigger")
	AttrSyncResult   = attribute.Key("result")
	AttrWebhookTopic = attribute.Key("topic")
)
