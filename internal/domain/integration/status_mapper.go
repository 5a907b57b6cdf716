package integration

import "strings"

// Internal workflow statuses
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusOnHold     = "ON_HOLD"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
	StatusRefunded   = "REFUNDED"
	StatusFailed     = "FAILED"
)

// HardcodedDefaultStatus is the last tier of status resolution
const HardcodedDefaultStatus = StatusPending

// builtinStatusMap covers the common platform statuses
var builtinStatusMap = map[string]string{
	"pending":        StatusPending,
	"checkout-draft": StatusPending,
	"processing":     StatusProcessing,
	"on-hold":        StatusOnHold,
	"completed":      StatusCompleted,
	"cancelled":      StatusCancelled,
	"refunded":       StatusRefunded,
	"failed":         StatusFailed,
}

// StatusMapper resolves external order status to internal status.
// Resolution order: tenant overrides, built-in table, tenant fallback,
// HardcodedDefaultStatus.
type StatusMapper struct {
	overrides map[string]string
	fallback  string
}

// NewStatusMapper creates a mapper. Override keys are normalized the same
// way as incoming statuses.
func NewStatusMapper(overrides map[string]string, fallback string) *StatusMapper {
	normalized := make(map[string]string, len(overrides))
	for k, v := range overrides {
		if v = strings.TrimSpace(v); v != "" {
			normalized[NormalizeExternalStatus(k)] = v
		}
	}
	return &StatusMapper{
		overrides: normalized,
		fallback:  strings.TrimSpace(fallback),
	}
}

// Map returns the internal status for an external one
func (m *StatusMapper) Map(external string) string {
	key := NormalizeExternalStatus(external)
	if s, ok := m.overrides[key]; ok {
		return s
	}
	if s, ok := builtinStatusMap[key]; ok {
		return s
	}
	if m.fallback != "" {
		return m.fallback
	}
	return HardcodedDefaultStatus
}

// NormalizeExternalStatus lower-cases and strips the "wc-" post status prefix
func NormalizeExternalStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimPrefix(s, "wc-")
}
