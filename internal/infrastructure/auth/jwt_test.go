package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/config"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{Secret: testSecret, Issuer: "test-issuer"})
}

func TestJWTService_IssueAndValidate(t *testing.T) {
	svc := newTestJWTService()
	tenantID, userID := uuid.New(), uuid.New()

	token, expiresAt, err := svc.Issue(TokenRequest{TenantID: tenantID, UserID: userID, Username: "ops", TTL: time.Hour})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, tenantID, claims.Tenant())
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "ops", claims.Username)
}

func TestJWTService_DefaultTTL(t *testing.T) {
	_, expiresAt, err := newTestJWTService().Issue(TokenRequest{TenantID: uuid.New(), UserID: uuid.New()})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), expiresAt, 5*time.Second)
}

func TestJWTService_ValidateAccessToken_Rejects(t *testing.T) {
	svc := newTestJWTService()
	sign := func(secret string, mutate func(*Claims)) string {
		c := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "test-issuer",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			TenantID:  uuid.NewString(),
			UserID:    uuid.NewString(),
			TokenType: AccessToken,
		}
		mutate(c)
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"wrong secret", sign("another-secret-key-of-32-characters", func(*Claims) {}), ErrInvalidToken},
		{"wrong issuer", sign(testSecret, func(c *Claims) { c.Issuer = "someone-else" }), ErrInvalidToken},
		{"no expiry", sign(testSecret, func(c *Claims) { c.ExpiresAt = nil }), ErrInvalidToken},
		{"expired", sign(testSecret, func(c *Claims) {
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		}), ErrExpiredToken},
		{"not yet valid", sign(testSecret, func(c *Claims) {
			c.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))
		}), ErrTokenNotYetValid},
		{"refresh token", sign(testSecret, func(c *Claims) { c.TokenType = "refresh" }), ErrInvalidTokenType},
		{"missing user", sign(testSecret, func(c *Claims) { c.UserID = "" }), ErrInvalidClaims},
		{"missing tenant", sign(testSecret, func(c *Claims) { c.TenantID = "" }), ErrInvalidClaims},
		{"tenant not a uuid", sign(testSecret, func(c *Claims) { c.TenantID = "acme" }), ErrInvalidClaims},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
