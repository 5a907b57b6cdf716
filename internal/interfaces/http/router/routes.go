package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/shared"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/cache"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/logger"
	"github.com/alexthecreator0001/woowms-sub001/internal/interfaces/http/handler"
	"github.com/alexthecreator0001/woowms-sub001/internal/interfaces/http/middleware"
)

// Handlers are the HTTP handlers of the sync API
type Handlers struct {
	System     *handler.SystemHandler
	Webhook    *handler.WebhookHandler
	Store      *handler.StoreHandler
	Product    *handler.ProductHandler
	Settings   *handler.SettingsHandler
	SyncStatus *handler.SyncStatusHandler
}

// Config holds the engine settings
type Config struct {
	ServiceName    string
	Tracing        bool
	Profiling      bool
	TrustedProxies []string

	WebhookMaxBodyBytes int64
	ManualSyncLimit     int
	ManualSyncWindow    time.Duration
	// ManualSyncLimiter counts manual triggers; process-local when nil
	ManualSyncLimiter   shared.RateLimiter

	// Swagger serves the API docs at /swagger/*any; SwaggerAuth puts them
	// behind the bearer token
	Swagger     bool
	SwaggerAuth bool

	Validator middleware.TokenValidator
	Logger    *zap.Logger
}

// New builds the gin engine. Probes and webhooks are public; everything
// under /api/v1 requires a bearer token and runs in the token's tenant.
func New(cfg Config, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	profiling := middleware.DefaultProfilingConfig()
	profiling.Enabled = cfg.Profiling

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.Tracing}),
		middleware.Secure(),
	)

	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)

	engine.POST("/webhooks/woocommerce/:storeId",
		middleware.BodyLimit(cfg.WebhookMaxBodyBytes),
		middleware.SpanEnricher(),
		middleware.Profiling(profiling),
		h.Webhook.HandleWooCommerce,
	)

	jwtAuth := middleware.JWTAuth(middleware.JWTMiddlewareConfig{Validator: cfg.Validator, Logger: log})

	if cfg.Swagger {
		docs := []gin.HandlerFunc{ginSwagger.WrapHandler(swaggerFiles.Handler)}
		if cfg.SwaggerAuth {
			docs = append([]gin.HandlerFunc{jwtAuth}, docs...)
		}
		engine.GET("/swagger/*any", docs...)
	}

	limiter := cfg.ManualSyncLimiter
	if limiter == nil {
		limiter = cache.NewInMemoryRateLimiter()
	}
	manualSyncLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Limiter: limiter,
		Limit:   cfg.ManualSyncLimit,
		Window:  cfg.ManualSyncWindow,
		Key:     middleware.TenantStoreKey,
	})

	stores := NewResource("/stores").
		POST("", h.Store.Create).
		GET("/:id", h.Store.Get).
		PUT("/:id", h.Store.Update).
		DELETE("/:id", h.Store.Delete).
		PUT("/:id/credentials", h.Store.RotateCredentials).
		POST("/:id/sync", manualSyncLimit, h.Store.Sync)

	products := NewResource("/products").
		POST("/:id/push-stock", h.Product.PushStock)

	settings := NewResource("/settings").
		GET("", h.Settings.Get).
		PUT("", h.Settings.Update)

	syncStatus := NewResource("/sync").
		GET("/status", h.SyncStatus.Get)

	Mount(engine, APIPrefix, []gin.HandlerFunc{
		jwtAuth,
		middleware.SpanEnricher(),
		middleware.Profiling(profiling),
	}, stores, products, settings, syncStatus)

	return engine, nil
}
