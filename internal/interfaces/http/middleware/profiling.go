package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/telemetry"
)

// ProfilingConfig holds configuration for the profiling middleware.
type ProfilingConfig struct {
	Enabled bool
	// SkipPaths are paths that don't need profiling labels (e.g., health checks).
	SkipPaths []string
}

// DefaultProfilingConfig returns default profiling middleware configuration.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:   true,
		SkipPaths: []string{"/health", "/ready"},
	}
}

// Profiling runs the rest of the chain under Pyroscope labels naming the
// route pattern and, once authenticated, the tenant. Route patterns keep the
// label cardinality bounded.
func Profiling(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		telemetry.WithProfilingLabels(c.Request.Context(), profilingLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func profilingLabels(c *gin.Context) telemetry.ProfileLabels {
	labels := make(telemetry.ProfileLabels, 3)
	if route := c.FullPath(); route != "" {
		labels[telemetry.ProfilingLabelOperation] = c.Request.Method + " " + route
	}
	if id := GetJWTTenantID(c); id != "" {
		labels[telemetry.ProfilingLabelTenantID] = id
	}
	if id := c.Param("storeId"); id != "" {
		labels[telemetry.ProfilingLabelStoreID] = id
	}
	return labels
}
