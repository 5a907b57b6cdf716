// Package auth validates the HS256 bearer tokens minted by the identity
// service. Issue exists for operator tooling and tests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/config"
)

// AccessToken is the only token_type the API accepts
const AccessToken = "access"

// DefaultTokenTTL applies when a TokenRequest has no TTL
const DefaultTokenTTL = 15 * time.Minute

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrInvalidClaims    = errors.New("invalid token claims")
)

type Claims struct {
	jwt.RegisteredClaims
	TenantID  string `json:"tenant_id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username,omitempty"`
	TokenType string `json:"token_type"`

	tenant uuid.UUID
}

// Tenant is the parsed tenant_id; zero until the claims pass Validate
func (c *Claims) Tenant() uuid.UUID { return c.tenant }

type JWTService struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

func NewJWTService(cfg config.JWTConfig) *JWTService {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &JWTService{secret: []byte(cfg.Secret), issuer: cfg.Issuer, parser: jwt.NewParser(opts...)}
}

// TokenRequest describes the access token Issue signs
type TokenRequest struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Username string
	TTL      time.Duration
}

// Issue signs an access token and returns it with its expiry
func (s *JWTService) Issue(req TokenRequest) (string, time.Time, error) {
	ttl := req.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	exp := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   req.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		TenantID:  req.TenantID.String(),
		UserID:    req.UserID.String(),
		Username:  req.Username,
		TokenType: AccessToken,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// ValidateAccessToken checks signature, issuer and lifetime, then requires
// an access token carrying a UUID tenant and a user.
func (s *JWTService) ValidateAccessToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, ErrTokenNotYetValid
	case err != nil:
		return nil, ErrInvalidToken
	}

	if claims.TokenType != AccessToken {
		return nil, ErrInvalidTokenType
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: user_id missing", ErrInvalidClaims)
	}
	tenant, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: tenant_id %q", ErrInvalidClaims, claims.TenantID)
	}
	claims.tenant = tenant
	return claims, nil
}
