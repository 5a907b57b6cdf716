package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
)

func newTestMeterProvider(t *testing.T) (*MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := &MeterProvider{
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		logger:   zap.NewNop(),
	}
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumWhere(t *testing.T, data metricdata.Aggregation, kv ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected an int64 sum, got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		match := true
		for _, want := range kv {
			got, ok := dp.Attributes.Value(want.Key)
			if !ok || got != want.Value {
				match = false
				break
			}
		}
		if match {
			total += dp.Value
		}
	}
	return total
}

func TestSyncMetrics_RecordRun(t *testing.T) {
	mp, reader := newTestMeterProvider(t)
	sm, err := NewSyncMetrics(SyncMetricsConfig{Meter: mp.Meter("test")})
	require.NoError(t, err)

	store := &integration.Store{ID: uuid.New(), TenantID: uuid.New()}
	start := time.Now()
	report := integration.NewSyncReport(store, integration.SyncEntityOrders, start)
	report.RecordSuccess(true)
	report.RecordSuccess(true)
	report.RecordSuccess(false)
	report.RecordFailure("42", errors.New("bad line"))
	report.Finish(start.Add(3*time.Second), nil)

	ctx := context.Background()
	sm.RecordRun(ctx, report, integration.TriggerWebhook)

	skipped := integration.NewSyncReport(store, integration.SyncEntityProducts, start)
	skipped.Skip(start, integration.SkipReasonDisabled)
	sm.RecordRun(ctx, skipped, integration.TriggerScheduler)

	data := collect(t, reader)
	runs := data["woowms_sync_runs_total"]
	assert.Equal(t, int64(1), sumWhere(t, runs,
		AttrSyncEntity.String("ORDERS"),
		AttrSyncStatus.String("PARTIAL"),
		AttrSyncTrigger.String("webhook")))
	assert.Equal(t, int64(1), sumWhere(t, runs, AttrSyncStatus.String("SKIPPED")))

	records := data["woowms_sync_records_total"]
	assert.Equal(t, int64(2), sumWhere(t, records, AttrSyncResult.String("created")))
	assert.Equal(t, int64(1), sumWhere(t, records, AttrSyncResult.String("updated")))
	assert.Equal(t, int64(1), sumWhere(t, records, AttrSyncResult.String("failed")))

	hist, ok := data["woowms_sync_run_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1, "skipped runs record no duration")
	assert.InDelta(t, 3.0, hist.DataPoints[0].Sum, 0.001)
}

func TestSyncMetrics_WebhookAndPush(t *testing.T) {
	mp, reader := newTestMeterProvider(t)
	sm, err := NewSyncMetrics(SyncMetricsConfig{Meter: mp.Meter("test")})
	require.NoError(t, err)

	ctx := context.Background()
	sm.RecordWebhook(ctx, "order.created", "synced")
	sm.RecordWebhook(ctx, "order.created", "duplicate")
	sm.RecordStockPush(ctx, uuid.New(), "failed")

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumWhere(t, data["woowms_webhook_deliveries_total"],
		AttrWebhookTopic.String("order.created")))
	assert.Equal(t, int64(1), sumWhere(t, data["woowms_stock_push_total"],
		AttrSyncResult.String("failed")))
}

func TestSyncMetrics_NilIsNoop(t *testing.T) {
	var sm *SyncMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		sm.RecordRun(ctx, &integration.SyncReport{}, integration.TriggerManual)
		sm.RecordWebhook(ctx, "ping", "ack")
		sm.RecordStockPush(ctx, uuid.New(), "pushed")
		sm.StartPeriodicCollection(ctx, time.Second)
		sm.Stop()
	})
}

func TestNewSyncMetrics_NilMeter(t *testing.T) {
	sm, err := NewSyncMetrics(SyncMetricsConfig{})
	assert.Nil(t, sm)
	assert.ErrorIs(t, err, ErrMeterNil)
	assert.Equal(t, "NewSyncMetrics: meter cannot be nil", err.Error())
}

type fakeHealth struct {
	lowStock  map[StoreKey]int64
	reconnect map[uuid.UUID]int64
}

func (f *fakeHealth) LowStockCounts(context.Context) (map[StoreKey]int64, error) {
	return f.lowStock, nil
}

func (f *fakeHealth) ReconnectCounts(context.Context) (map[uuid.UUID]int64, error) {
	return f.reconnect, nil
}

func TestSyncMetrics_PeriodicCollection(t *testing.T) {
	mp, reader := newTestMeterProvider(t)
	key := StoreKey{TenantID: uuid.New(), StoreID: uuid.New()}
	health := &fakeHealth{
		lowStock:  map[StoreKey]int64{key: 3},
		reconnect: map[uuid.UUID]int64{key.TenantID: 1},
	}
	sm, err := NewSyncMetrics(SyncMetricsConfig{Meter: mp.Meter("test"), HealthProvider: health})
	require.NoError(t, err)

	sm.StartPeriodicCollection(context.Background(), time.Hour)
	defer sm.Stop()

	assert.Eventually(t, func() bool {
		gauge, ok := collect(t, reader)["woowms_low_stock_products"].(metricdata.Gauge[int64])
		return ok && len(gauge.DataPoints) == 1 && gauge.DataPoints[0].Value == 3
	}, time.Second, 10*time.Millisecond)
}

func TestProviders_Disabled(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	tp, err := NewTracerProvider(ctx, TracingConfig{Enabled: false}, logger)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NoError(t, tp.EnableSpanProfiles())
	assert.False(t, tp.IsSpanProfilesEnabled())
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, MetricsConfig{Enabled: false}, logger)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("noop"))
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := NewLoggerProvider(ctx, LogsConfig{Enabled: false}, logger)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.Shutdown(ctx))

	var p *Profiler
	assert.NoError(t, p.Stop())
}

func TestStartProfiler_Validation(t *testing.T) {
	_, err := StartProfiler(ProfilerConfig{}, zap.NewNop())
	assert.Error(t, err)

	_, err = StartProfiler(ProfilerConfig{ServerAddress: "http://pyroscope:4040", ProfileTypes: []string{"heap"}}, zap.NewNop())
	assert.ErrorContains(t, err, "heap")

	_, err = resolveProfileTypes([]string{"cpu", "heap-ish"})
	assert.ErrorContains(t, err, "heap-ish")

	types, err := resolveProfileTypes([]string{"CPU", " mutex "})
	require.NoError(t, err)
	assert.Len(t, types, 3)
}

func TestStartSpan_RecordsAttributesAndErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	storeID := uuid.New()
	ctx, span := StartSpan(context.Background(), "sync.orders",
		Attr(SpanAttrStoreID, storeID),
		Attr(SpanAttrPage, 2),
	)
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	SetAttributes(span, SpanAttrProcessed, 10, 99, "dropped")
	EndSpan(span, errors.New("upstream 503"))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	got := ended[0]
	assert.Equal(t, "sync.orders", got.Name())
	assert.Equal(t, codes.Error, got.Status().Code)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range got.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, storeID.String(), attrs[SpanAttrStoreID].AsString())
	assert.Equal(t, int64(2), attrs[SpanAttrPage].AsInt64())
	assert.Equal(t, int64(10), attrs[SpanAttrProcessed].AsInt64())
	require.Len(t, got.Events(), 1, "the recorded error")
}

func TestHelpers_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		SetAttributes(nil, "a", 1)
		RecordError(nil, errors.New("x"))
		SetOK(nil)
		EndSpan(nil, nil)
	})
}

func TestProfileLabels_Pairs(t *testing.T) {
	long := make([]byte, MaxLabelValueLength+10)
	for i := range long {
		long[i] = 'x'
	}
	got := ProfileLabels{
		"Store-ID":    "s1",
		"request_id":  "drop me",
		"entity":      "",
		"sync.Entity": string(long),
	}.pairs()
	assert.Equal(t, []string{"store_id", "s1", "sync_entity", string(long[:MaxLabelValueLength])}, got)
	assert.Empty(t, ProfileLabels(nil).pairs())
}

func TestWithProfilingLabels_RunsFn(t *testing.T) {
	called := 0
	WithProfilingLabels(context.Background(), SyncLabels("t", "s", "ORDERS", "manual"), func(context.Context) {
		called++
	})
	WithProfilingLabels(context.Background(), nil, func(context.Context) {
		called++
	})
	assert.Equal(t, 2, called)
}

type countingExporter struct{ records int }

func (e *countingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.records += len(records)
	return nil
}
func (e *countingExporter) Shutdown(context.Context) error { return nil }
func (e *countingExporter) ForceFlush(context.Context) error { return nil }

func TestNewZapOTELCore(t *testing.T) {
	assert.IsType(t, zapcore.NewNopCore(), NewZapOTELCore("svc", nil, zapcore.InfoLevel))
	assert.IsType(t, zapcore.NewNopCore(), NewZapOTELCore("svc", &LoggerProvider{}, zapcore.InfoLevel))

	exp := &countingExporter{}
	lp := &LoggerProvider{
		sdk:    sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp))),
		logger: zap.NewNop(),
	}
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })

	log := BridgeLogger(zap.NewNop(), NewZapOTELCore("svc", lp, zapcore.WarnLevel))
	log.Info("Below threshold")
	log.With(zap.String("store_id", "s1")).Warn("Exported")
	assert.Equal(t, 1, exp.records)
}

func TestInstrumentDB(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	type widget struct {
		ID   uint
		Name string
	}
	require.NoError(t, db.AutoMigrate(&widget{}))

	mp, reader := newTestMeterProvider(t)
	metrics, err := InstrumentDB(db, mp, DBConfig{Metrics: true, SlowQueryThreshold: time.Nanosecond}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, metrics)
	defer metrics.Stop()

	require.NoError(t, db.Create(&widget{Name: "a"}).Error)
	var got []widget
	require.NoError(t, db.Find(&got).Error)

	data := collect(t, reader)
	assert.Equal(t, int64(1), sumWhere(t, data["db_query_total"], AttrDBOperation.String("INSERT")))
	assert.Equal(t, int64(1), sumWhere(t, data["db_query_total"], AttrDBOperation.String("SELECT")))
	assert.GreaterOrEqual(t, sumWhere(t, data["db_slow_query_total"]), int64(2))
}

func TestDetectOperation(t *testing.T) {
	cases := map[string]string{
		`INSERT INTO "orders" ... ON CONFLICT ("external_id","store_id") DO UPDATE`: "UPSERT",
		"  select * from stores":               "SELECT",
		`UPDATE "stores" SET "last_sync_at"=?`: "UPDATE",
		"":                                     "ROW",
	}
	for sqlText, want := range cases {
		assert.Equal(t, want, detectOperation(sqlText, "row"), sqlText)
	}
}
