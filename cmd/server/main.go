package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	integrationapp "github.com/alexthecreator0001/woowms-sub001/internal/application/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/auth"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/cache"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/config"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/crypto"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/ecommerce"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/event"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/logger"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/migration"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/scheduler"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/telemetry"
	"github.com/alexthecreator0001/woowms-sub001/internal/interfaces/http/handler"
	"github.com/alexthecreator0001/woowms-sub001/internal/interfaces/http/middleware"
	"github.com/alexthecreator0001/woowms-sub001/internal/interfaces/http/router"
	"github.com/alexthecreator0001/woowms-sub001/migrations"

	_ "github.com/alexthecreator0001/woowms-sub001/docs"
)

//	@title			WooCommerce Sync API
//	@version		1.0
//	@description	Imports WooCommerce orders and products per tenant and pushes stock back

//	@host		localhost:8080
//	@BasePath	/

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------------
	// Telemetry
	// ---------------------------------------------------------------------

	tel := setupTelemetry(ctx, cfg, log)
	log = tel.logger

	log.Info("Starting WooCommerce sync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// ---------------------------------------------------------------------
	// Storage
	// ---------------------------------------------------------------------

	gormLog := logger.NewGormLogger(log, logger.GormConfig{Level: logger.GormLevel(cfg.Log.Level)})
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := applyMigrations(&cfg.Database, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	if tel.meters != nil {
		dbMetrics, err := telemetry.InstrumentDB(db.DB, tel.meters, telemetry.DBConfig{
			Tracing: cfg.Telemetry.DBTraceEnabled,
			Metrics: cfg.Telemetry.MetricsEnabled,
		}, log)
		if err != nil {
			log.Warn("Database instrumentation disabled", zap.Error(err))
		} else {
			dbMetrics.StartPoolStatsCollection(ctx)
			defer dbMetrics.Stop()
		}
	}

	if tel.meters != nil {
		sm, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
			Meter:          tel.meters.Meter("woowms/sync"),
			Logger:         log,
			HealthProvider: telemetry.NewGormSyncHealthProvider(db.DB),
		})
		if err != nil {
			log.Warn("Sync metrics disabled", zap.Error(err))
		} else {
			tel.syncMetrics = sm
			sm.StartPeriodicCollection(ctx, 0)
		}
	}

	backends, err := cache.NewFactory(cfg.Redis, cache.WithLogger(log)).Create(ctx)
	if err != nil {
		log.Fatal("Failed to initialize dedup and lock backends", zap.Error(err))
	}
	defer func() {
		_ = backends.Close()
	}()

	storeRepo := persistence.NewGormStoreRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	settingsRepo := persistence.NewGormTenantSettingsRepository(db.DB)

	// ---------------------------------------------------------------------
	// Events
	// ---------------------------------------------------------------------

	bus := event.NewBus(log.Named("events"))
	bus.Subscribe(event.LogHandler(log.Named("events")))
	publishers := event.Fanout{bus}
	if cfg.Kafka.Enabled {
		kafkaPub := event.NewKafkaPublisher(cfg.Kafka, log)
		defer func() {
			if err := kafkaPub.Close(); err != nil {
				log.Error("Error closing Kafka publisher", zap.Error(err))
			}
		}()
		publishers = append(publishers, kafkaPub)
		log.Info("Kafka event publishing enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	// ---------------------------------------------------------------------
	// Sync engine
	// ---------------------------------------------------------------------

	cipher, err := crypto.NewCredentialCipher(cfg.Crypto.RootSecret)
	if err != nil {
		log.Fatal("Failed to initialize credential cipher", zap.Error(err))
	}

	clients := ecommerce.NewClientProvider(cipher, log,
		ecommerce.WithClientTimeout(cfg.Sync.HTTPTimeout),
		ecommerce.WithClientTransport(otelhttp.NewTransport(http.DefaultTransport)),
	)

	deps := integrationapp.SyncDependencies{
		Stores:   storeRepo,
		Orders:   orderRepo,
		Products: productRepo,
		Settings: settingsRepo,
		Clients:  clients,
	}

	orderWalker := integrationapp.NewOrderSyncService(deps, integrationapp.WithPageSize(cfg.Sync.PageSize))
	productWalker := integrationapp.NewProductSyncService(deps, integrationapp.WithPageSize(cfg.Sync.PageSize))

	coordinator := integrationapp.NewSyncCoordinator(orderWalker, productWalker, storeRepo,
		integrationapp.CoordinatorConfig{LockTTL: cfg.Sync.LockTTL, RunTimeout: cfg.Sync.RunTimeout},
		log,
		integrationapp.WithLocker(backends.Locker),
		integrationapp.WithEventPublisher(publishers),
		integrationapp.WithSyncMetrics(tel.syncMetrics),
	)

	deliveries := backends.Deliveries
	if !cfg.Webhook.DedupEnabled {
		deliveries = nil
	}
	webhookService := integrationapp.NewWebhookService(storeRepo, cipher, coordinator, deliveries, tel.syncMetrics,
		integrationapp.WebhookConfig{
			DedupEnabled: cfg.Webhook.DedupEnabled,
			DedupTTL:     cfg.Webhook.DedupTTL,
			RunTimeout:   cfg.Sync.RunTimeout,
		}, log)
	pushService := integrationapp.NewStockPushService(deps, publishers, tel.syncMetrics, cfg.Sync.PushTimeout, log)
	storeService := integrationapp.NewStoreService(storeRepo, cipher, clients, coordinator, log)
	settingsService := integrationapp.NewSettingsService(settingsRepo)

	syncScheduler, err := scheduler.New(scheduler.Config{
		Schedule:    cfg.Sync.CronSchedule,
		MaxParallel: cfg.Sync.MaxParallel,
		RunTimeout:  cfg.Sync.RunTimeout,
	}, storeRepo, coordinator, log)
	if err != nil {
		log.Fatal("Invalid scheduler configuration", zap.Error(err))
	}
	if cfg.Sync.SchedulerEnabled {
		if err := syncScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
	} else {
		log.Info("Sync scheduler disabled; only webhooks and manual triggers will sync")
	}

	// ---------------------------------------------------------------------
	// HTTP
	// ---------------------------------------------------------------------

	middleware.SetupValidator()

	checks := []handler.ReadinessCheck{{Name: "database", Check: db.Ping}}
	if backends.Redis != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return backends.Redis.Ping(ctx).Err()
		}})
	}

	engine, err := router.New(router.Config{
		ServiceName:         cfg.Telemetry.ServiceName,
		Tracing:             cfg.Telemetry.Enabled,
		Profiling:           cfg.Telemetry.ProfilingEnabled,
		TrustedProxies:      cfg.HTTP.TrustedProxies,
		WebhookMaxBodyBytes: cfg.Webhook.MaxBodyBytes,
		ManualSyncLimit:     cfg.Sync.ManualSyncLimit,
		ManualSyncWindow:    cfg.Sync.ManualSyncWindow,
		ManualSyncLimiter:   backends.Limiter,
		Swagger:             cfg.Swagger.Enabled,
		SwaggerAuth:         cfg.Swagger.RequireAuth,
		Validator:           auth.NewJWTService(cfg.JWT),
		Logger:              log,
	}, router.Handlers{
		System:     handler.NewSystemHandler(cfg.App.Name, version, checks...),
		Webhook:    handler.NewWebhookHandler(webhookService),
		Store:      handler.NewStoreHandler(storeService),
		Product:    handler.NewProductHandler(pushService),
		Settings:   handler.NewSettingsHandler(settingsService),
		SyncStatus: handler.NewSyncStatusHandler(syncScheduler),
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// stop intake first, then drain background work
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := syncScheduler.Stop(shutdownCtx); err != nil {
		log.Error("Sync scheduler did not stop cleanly", zap.Error(err))
	}
	pushService.Wait()
	tel.shutdown(shutdownCtx)

	log.Info("Server exited gracefully")
}

// applyMigrations runs the embedded migrations over a dedicated connection
func applyMigrations(cfg *config.DatabaseConfig, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migrations.FS, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer m.Close()
	return m.Up()
}

// ---------------------------------------------------------------------------
// Telemetry setup
// ---------------------------------------------------------------------------

type telemetryStack struct {
	logger      *zap.Logger
	tracer      *telemetry.TracerProvider
	meters      *telemetry.MeterProvider
	logs        *telemetry.LoggerProvider
	profiler    *telemetry.Profiler
	syncMetrics *telemetry.SyncMetrics
}

// setupTelemetry starts every enabled signal. Failures degrade to running
// without that signal.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) *telemetryStack {
	t := &telemetryStack{logger: log}
	tc := cfg.Telemetry
	if !tc.Enabled {
		return t
	}

	collector := telemetry.Collector{
		Endpoint:       tc.CollectorEndpoint,
		Insecure:       tc.Insecure,
		ServiceName:    tc.ServiceName,
		ServiceVersion: version,
	}

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		Collector:     collector,
		Enabled:       true,
		SamplingRatio: tc.SamplingRatio,
	}, log)
	if err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
	} else {
		t.tracer = tracer
	}

	if tc.LogsEnabled {
		lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{Collector: collector, Enabled: true}, log)
		if err != nil {
			log.Warn("Log export disabled", zap.Error(err))
		} else {
			t.logs = lp
			t.logger = telemetry.BridgeLogger(log, telemetry.NewZapOTELCore(tc.ServiceName, lp, logger.ParseLevel(cfg.Log.Level)))
		}
	}

	if tc.MetricsEnabled {
		mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{Collector: collector, Enabled: true}, t.logger)
		if err != nil {
			t.logger.Warn("Metrics disabled", zap.Error(err))
		} else {
			t.meters = mp
		}
	}

	if tc.ProfilingEnabled {
		p, err := telemetry.StartProfiler(telemetry.ProfilerConfig{
			ServerAddress:   tc.PyroscopeURL,
			ApplicationName: tc.ServiceName,
			ProfileTypes:    tc.ProfileTypes,
		}, t.logger)
		if err != nil {
			t.logger.Warn("Profiling disabled", zap.Error(err))
		} else {
			t.profiler = p
			if t.tracer != nil {
				if err := t.tracer.EnableSpanProfiles(); err != nil {
					t.logger.Warn("Span profiles disabled", zap.Error(err))
				}
			}
		}
	}
	return t
}

func (t *telemetryStack) shutdown(ctx context.Context) {
	if t.syncMetrics != nil {
		t.syncMetrics.Stop()
	}
	if t.profiler != nil {
		if err := t.profiler.Stop(); err != nil {
			t.logger.Warn("Profiler stop failed", zap.Error(err))
		}
	}
	if t.meters != nil {
		if err := t.meters.Shutdown(ctx); err != nil {
			t.logger.Warn("Meter provider shutdown failed", zap.Error(err))
		}
	}
	if t.tracer != nil {
		if err := t.tracer.Shutdown(ctx); err != nil {
			t.logger.Warn("Tracer provider shutdown failed", zap.Error(err))
		}
	}
	if t.logs != nil {
		if err := t.logs.Shutdown(ctx); err != nil {
			t.logger.Warn("Logger provider shutdown failed", zap.Error(err))
		}
	}
}
