package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig selects the database instrumentation to install.
type DBConfig struct {
	Tracing bool
	// LogFullSQL keeps query variables in spans; never enable in production
	LogFullSQL         bool
	Metrics            bool
	SlowQueryThreshold time.Duration // default 200ms
	PoolStatsInterval  time.Duration // default 15s
}

// DBMetrics holds the database instruments. Create it with InstrumentDB.
type DBMetrics struct {
	poolConnections    *Gauge
	poolConnectionsMax *Gauge
	queryTotal         *Counter
	queryDuration      *Histogram
	slowQueryTotal     *Counter

	sqlDB    *sql.DB
	interval time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

type queryStartKey struct{}

// InstrumentDB installs otelgorm tracing and query metrics on db according
// to cfg. Slow queries are always logged. The returned DBMetrics is nil when
// metrics are off; Stop on it is nil-safe.
func InstrumentDB(db *gorm.DB, mp *MeterProvider, cfg DBConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = 15 * time.Second
	}

	if cfg.Tracing {
		opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
		if !cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return nil, err
		}
	}

	var metrics *DBMetrics
	if cfg.Metrics && mp != nil {
		var err error
		if metrics, err = newDBMetrics(mp, cfg.PoolStatsInterval, logger); err != nil {
			return nil, err
		}
		if metrics.sqlDB, err = db.DB(); err != nil {
			return nil, err
		}
	}

	timer := &queryTimer{
		threshold: cfg.SlowQueryThreshold,
		metrics:   metrics,
		logger:    logger.Named("db"),
	}
	if err := timer.register(db); err != nil {
		return nil, err
	}

	logger.Info("Database instrumentation installed",
		zap.Bool("tracing", cfg.Tracing),
		zap.Bool("metrics", metrics != nil),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
	)
	return metrics, nil
}

func newDBMetrics(mp *MeterProvider, interval time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	meter := mp.Meter("woowms-db")
	m := &DBMetrics{
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
	in := newInstruments(meter)
	m.poolConnections = in.gauge("db_pool_connections", "Connections in the pool by state", "{connection}")
	m.poolConnectionsMax = in.gauge("db_pool_connections_max", "Maximum open connections", "{connection}")
	m.queryTotal = in.counter("db_query_total", "Queries by operation", "{query}")
	m.queryDuration = in.histogram("db_query_duration_seconds", "Query latency", DBDurationBuckets)
	m.slowQueryTotal = in.counter("db_slow_query_total", "Queries over the slow threshold by table", "{query}")
	if err := in.err(); err != nil {
		return nil, err
	}
	return m, nil
}

// StartPoolStatsCollection samples sql.DB pool stats until Stop or ctx ends
func (m *DBMetrics) StartPoolStatsCollection(ctx context.Context) {
	if m == nil || m.sqlDB == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.collectPoolStats(ctx)
		for {
			select {
			case <-ticker.C:
				m.collectPoolStats(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *DBMetrics) collectPoolStats(ctx context.Context) {
	stats := m.sqlDB.Stats()
	m.poolConnectionsMax.Record(ctx, int64(stats.MaxOpenConnections))
	m.poolConnections.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.poolConnections.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.poolConnections.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// Stop ends pool stats collection
func (m *DBMetrics) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
	})
}

// RecordQuery records one finished query
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, d time.Duration, slow bool) {
	if m == nil {
		return
	}
	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	m.queryDuration.RecordDuration(ctx, d, AttrDBOperation.String(operation))
	if slow {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// queryTimer times every GORM operation, annotates the active span and
// reports slow queries.
type queryTimer struct {
	threshold time.Duration
	metrics   *DBMetrics
	logger    *zap.Logger
}

type registerFunc func(name string, fn func(*gorm.DB)) error

func (t *queryTimer) register(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op            string
		before, after registerFunc
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		op := h.op
		if err := h.before("woowms:timer_before_"+op, t.before); err != nil {
			return err
		}
		if err := h.after("woowms:timer_after_"+op, func(db *gorm.DB) { t.after(db, op) }); err != nil {
			return err
		}
	}
	return nil
}

func (t *queryTimer) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (t *queryTimer) after(db *gorm.DB, op string) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	slow := elapsed > t.threshold
	operation := detectOperation(db.Statement.SQL.String(), op)

	t.metrics.RecordQuery(ctx, operation, db.Statement.Table, elapsed, slow)

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
			attribute.String("db.sql.table", db.Statement.Table),
		)
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}
		if slow {
			span.SetAttributes(attribute.Bool("db.slow_query", true))
			span.AddEvent("slow_query", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
			))
		}
	}

	if slow {
		t.logger.Warn("Slow query",
			zap.String("operation", operation),
			zap.String("table", db.Statement.Table),
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows", db.Statement.RowsAffected),
		)
	}
}

// detectOperation prefers the SQL verb; upserts run through the create
// processor but are reported as such.
func detectOperation(sqlText, fallback string) string {
	s := strings.ToUpper(strings.TrimSpace(sqlText))
	switch {
	case strings.Contains(s, "ON CONFLICT"):
		return "UPSERT"
	case strings.HasPrefix(s, "SELECT"):
		return "SELECT"
	case strings.HasPrefix(s, "INSERT"):
		return "INSERT"
	case strings.HasPrefix(s, "UPDATE"):
		return "UPDATE"
	case strings.HasPrefix(s, "DELETE"):
		return "DELETE"
	}
	return strings.ToUpper(fallback)
}
