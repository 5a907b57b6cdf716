package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GinMiddleware writes one access log line per request. It also binds the
// request id (set earlier under "request_id") into the request context, so
// L(ctx) and the GORM logger tag everything the handler does with it.
func GinMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		ctx, reqLog := WithRequestID(c.Request.Context(), base, c.GetString("request_id"))
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		// tenant is only known after auth ran further down the chain
		if id := GetTenantID(c.Request.Context()); id != "" {
			fields = append(fields, zap.String("tenant_id", id))
		}
		if id := storeParam(c); id != "" {
			fields = append(fields, zap.String("store_id", id))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		log := reqLog.Info
		if status >= http.StatusInternalServerError {
			log = reqLog.Error
		} else if status >= http.StatusBadRequest {
			log = reqLog.Warn
		}
		log("HTTP Request", fields...)
	}
}

// storeParam is the store addressed by the route: the webhook's :storeId
// or the :id of a /stores/:id route.
func storeParam(c *gin.Context) string {
	if id := c.Param("storeId"); id != "" {
		return id
	}
	if strings.Contains(c.FullPath(), "/stores/:id") {
		return c.Param("id")
	}
	return ""
}

// Recovery answers 500 to a panicking handler and logs the stack
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			base.Error("Panic recovered",
				zap.String("request_id", c.GetString("request_id")),
				zap.String("path", c.Request.URL.Path),
				zap.Any("panic", rec),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatus(http.StatusInternalServerError)
		}()
		c.Next()
	}
}
