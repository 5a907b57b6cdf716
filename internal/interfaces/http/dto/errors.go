package dto

import (
	"errors"
	"net/http"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/domain/shared"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/tenant"
)

// API error codes, ERR_<DESCRIPTION>
const (
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidCurrency = "ERR_INVALID_CURRENCY"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"

	ErrCodeUnauthorized     = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired     = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid     = "ERR_TOKEN_INVALID"
	ErrCodeTenantRequired   = "ERR_TENANT_REQUIRED"
	ErrCodeSignatureInvalid = "ERR_SIGNATURE_INVALID"
	ErrCodeWebhookNoSecret  = "ERR_WEBHOOK_SECRET_MISSING"

	ErrCodeNotFound       = "ERR_NOT_FOUND"
	ErrCodeSyncInProgress = "ERR_SYNC_IN_PROGRESS"
	ErrCodeStoreInactive  = "ERR_STORE_INACTIVE"
	ErrCodeRateLimited    = "ERR_RATE_LIMITED"

	// ErrCodePlatformUnavailable covers network failures, 5xx and 429 from the store
	ErrCodePlatformUnavailable = "ERR_PLATFORM_UNAVAILABLE"
	// ErrCodePlatformAuth means the store rejected the stored credentials
	ErrCodePlatformAuth = "ERR_PLATFORM_AUTH"
	// ErrCodePlatformFailed covers other rejected or malformed upstream responses
	ErrCodePlatformFailed = "ERR_PLATFORM_FAILED"
)

var codeStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidCurrency: http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeTokenExpired:     http.StatusUnauthorized,
	ErrCodeTokenInvalid:     http.StatusUnauthorized,
	ErrCodeTenantRequired:   http.StatusUnauthorized,
	ErrCodeSignatureInvalid: http.StatusUnauthorized,
	ErrCodeWebhookNoSecret:  http.StatusUnauthorized,

	ErrCodeNotFound:       http.StatusNotFound,
	ErrCodeSyncInProgress: http.StatusConflict,
	ErrCodeStoreInactive:  http.StatusUnprocessableEntity,
	ErrCodeRateLimited:    http.StatusTooManyRequests,

	ErrCodePlatformUnavailable: http.StatusServiceUnavailable,
	ErrCodePlatformAuth:        http.StatusBadGateway,
	ErrCodePlatformFailed:      http.StatusBadGateway,
}

// GetHTTPStatus returns the status for an API error code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainCodes translates shared.DomainError codes to API codes
var domainCodes = map[string]string{
	shared.ErrInvalidCurrency.Code: ErrCodeInvalidCurrency,
}

// errorMappings is checked in order with errors.Is
var errorMappings = []struct {
	target  error
	code    string
	message string
}{
	{integration.ErrStoreNotFound, ErrCodeNotFound, "Store not found"},
	{integration.ErrProductNotFound, ErrCodeNotFound, "Product not found"},
	{integration.ErrOrderNotFound, ErrCodeNotFound, "Order not found"},
	{tenant.ErrTenantMismatch, ErrCodeNotFound, "Resource not found"},

	{integration.ErrSignatureInvalid, ErrCodeSignatureInvalid, "Webhook signature mismatch"},
	{integration.ErrWebhookSecretMissing, ErrCodeWebhookNoSecret, "Store has no webhook secret configured"},
	{tenant.ErrTenantIDRequired, ErrCodeTenantRequired, "Tenant context required"},
	{tenant.ErrInvalidTenantID, ErrCodeTenantRequired, "Tenant context required"},

	{integration.ErrStoreInvalidBaseURL, ErrCodeValidation, "Base URL must be an absolute http(s) URL"},
	{integration.ErrStoreMissingKey, ErrCodeValidation, "Consumer key is required"},
	{integration.ErrStoreMissingSecret, ErrCodeValidation, "Consumer secret is required"},
	{integration.ErrStoreInvalidInterval, ErrCodeValidation, "Sync interval must be positive"},

	{integration.ErrStoreInactive, ErrCodeStoreInactive, "Store is inactive"},
	{integration.ErrSyncInProgress, ErrCodeSyncInProgress, "A sync is already running for this store"},

	{integration.ErrPlatformAuthFailed, ErrCodePlatformAuth, "Store rejected the stored credentials; reconnect required"},
	{integration.ErrPlatformUnavailable, ErrCodePlatformUnavailable, "Store is temporarily unavailable"},
	{integration.ErrPlatformRateLimited, ErrCodePlatformUnavailable, "Store is rate limiting requests"},
	{integration.ErrPlatformRequestFailed, ErrCodePlatformFailed, "Store rejected the request"},
	{integration.ErrPlatformInvalidResponse, ErrCodePlatformFailed, "Store returned an invalid response"},
	{integration.ErrPlatformNotFound, ErrCodePlatformFailed, "Resource not found on the store"},
}

// FromError maps err to an HTTP status and error envelope. Domain errors
// with an unmapped code answer 422 with their own code. Anything else is a
// 500 whose message does not leak internals.
func FromError(err error, requestID string) (int, Response) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return GetHTTPStatus(m.code), NewErrorResponse(m.code, m.message, requestID)
		}
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code, ok := domainCodes[domainErr.Code]
		if !ok {
			return http.StatusUnprocessableEntity, NewErrorResponse(domainErr.Code, domainErr.Message, requestID)
		}
		return GetHTTPStatus(code), NewErrorResponse(code, domainErr.Message, requestID)
	}

	return http.StatusInternalServerError, NewErrorResponse(ErrCodeInternal, "An unexpected error occurred", requestID)
}
