package integration

import "errors"

// Platform errors returned by CommerceClient adapters
var (
	ErrPlatformUnavailable     = errors.New("integration: platform temporarily unavailable")
	ErrPlatformRequestFailed   = errors.New("integration: platform request failed")
	ErrPlatformInvalidResponse = errors.New("integration: invalid platform response")
	ErrPlatformAuthFailed      = errors.New("integration: platform authentication failed")
	ErrPlatformRateLimited     = errors.New("integration: platform rate limited")
	ErrPlatformNotFound        = errors.New("integration: platform resource not found")
)

// Store errors
var (
	ErrStoreNotFound         = errors.New("integration: store not found")
	ErrStoreInactive         = errors.New("integration: store is inactive")
	ErrStoreInvalidBaseURL   = errors.New("integration: invalid store base URL")
	ErrStoreMissingKey       = errors.New("integration: consumer key is required")
	ErrStoreMissingSecret    = errors.New("integration: consumer secret is required")
	ErrStoreInvalidInterval  = errors.New("integration: sync interval must be positive")
	ErrWebhookSecretMissing  = errors.New("integration: store has no webhook secret")
	ErrSignatureInvalid      = errors.New("integration: webhook signature mismatch")
	ErrCredentialDecryptFail = errors.New("integration: failed to decrypt store credential")
)

// Sync errors
var (
	ErrSyncDisabled    = errors.New("integration: sync disabled for store")
	ErrSyncInProgress  = errors.New("integration: sync already running for store")
	ErrProductNotFound = errors.New("integration: product not found")
	ErrOrderNotFound   = errors.New("integration: order not found")
	ErrInvalidOrder    = errors.New("integration: invalid platform order")
	ErrInvalidProduct  = errors.New("integration: invalid platform product")
)

// IsTransient reports whether err is an upstream failure that is expected to
// clear on a later attempt.
func IsTransient(err error) bool {
	return errors.Is(err, ErrPlatformUnavailable) || errors.Is(err, ErrPlatformRateLimited)
}

// IsAuthFailure reports whether err means the stored credentials were rejected.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrPlatformAuthFailed)
}
