package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/shared"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/logger"
	"github.com/alexthecreator0001/woowms-sub001/internal/interfaces/http/dto"
)

// RateLimitConfig allows Limit requests per key every Window
type RateLimitConfig struct {
	Limiter shared.RateLimiter
	Limit   int
	Window  time.Duration
	Key     func(*gin.Context) string
}

// RateLimit answers 429 with Retry-After once a key has used its window's
// budget. A failing limiter lets the request through.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		d, err := cfg.Limiter.Allow(ctx, cfg.Key(c), cfg.Limit, cfg.Window)
		if err != nil {
			logger.L(ctx).Warn("Rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			abortWithError(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, "Too many requests, retry later")
			return
		}
		c.Next()
	}
}

// TenantStoreKey keys limits by tenant and the :id path parameter
func TenantStoreKey(c *gin.Context) string {
	return GetJWTTenantID(c) + ":" + c.Param("id")
}
