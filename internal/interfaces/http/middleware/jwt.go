package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/auth"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/logger"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/tenant"
	"github.com/alexthecreator0001/woowms-sub001/internal/interfaces/http/dto"
)

const (
	AuthHeaderKey = "Authorization"

	// gin context keys set by JWTAuth
	JWTClaimsKey   = "jwt_claims"
	JWTUserIDKey   = "jwt_user_id"
	JWTTenantIDKey = "jwt_tenant_id"
)

type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

type JWTMiddlewareConfig struct {
	Validator TokenValidator
	// SkipPaths are exact paths served without a token
	SkipPaths []string
	Logger    *zap.Logger
}

// JWTAuth authenticates the request and scopes its context to the token's
// tenant, so every repository call downstream is tenant isolated.
func JWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		raw, ok := bearerToken(c.GetHeader(AuthHeaderKey))
		if !ok {
			log.Debug("Request without bearer token", zap.String("path", c.Request.URL.Path))
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}

		claims, err := cfg.Validator.ValidateAccessToken(raw)
		if err != nil {
			log.Warn("Bearer token rejected", zap.Error(err), zap.String("path", c.Request.URL.Path))
			code, msg := dto.ErrCodeTokenInvalid, "Invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				code, msg = dto.ErrCodeTokenExpired, "Token has expired"
			}
			abortWithError(c, http.StatusUnauthorized, code, msg)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTTenantIDKey, claims.TenantID)

		ctx := tenant.ContextFor(c.Request.Context(), claims.Tenant())
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), claims.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func GetJWTClaims(c *gin.Context) *auth.Claims {
	v, _ := c.Get(JWTClaimsKey)
	claims, _ := v.(*auth.Claims)
	return claims
}

func GetJWTTenantID(c *gin.Context) string { return c.GetString(JWTTenantIDKey) }

func GetJWTUserID(c *gin.Context) string { return c.GetString(JWTUserIDKey) }
