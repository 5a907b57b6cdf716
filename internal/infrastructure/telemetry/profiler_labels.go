package telemetry

import (
	"context"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelTenantID  = "tenant_id"
	ProfilingLabelStoreID   = "store_id"
	ProfilingLabelEntity    = "entity"
	ProfilingLabelTrigger   = "trigger"
	ProfilingLabelOperation = "operation"
)

// MaxLabelValueLength caps label values to keep profile series bounded
const MaxLabelValueLength = 128

// droppedLabels would give every request its own series. Store ids stay:
// per-store CPU is what walker profiles are read for.
var droppedLabels = map[string]bool{
	"request_id":  true,
	"order_id":    true,
	"trace_id":    true,
	"span_id":     true,
	"delivery_id": true,
}

var (
	labelSeparators = regexp.MustCompile(`[\s.-]+`)
	labelInvalid    = regexp.MustCompile(`[^a-z0-9_]`)
)

// ProfileLabels are pyroscope labels keyed by snake_case name
type ProfileLabels map[string]string

// SyncLabels labels one walker run
func SyncLabels(tenantID, storeID, entity, trigger string) ProfileLabels {
	return ProfileLabels{
		ProfilingLabelTenantID: tenantID,
		ProfilingLabelStoreID:  storeID,
		ProfilingLabelEntity:   entity,
		ProfilingLabelTrigger:  trigger,
	}
}

// WithProfilingLabels runs fn with labels attached to its goroutine.
// Empty and per-request labels are skipped.
func WithProfilingLabels(ctx context.Context, labels ProfileLabels, fn func(context.Context)) {
	pairs := labels.pairs()
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// pairs flattens the labels into sorted key/value pairs with normalized keys
// and truncated values
func (l ProfileLabels) pairs() []string {
	var out []string
	for _, key := range slices.Sorted(maps.Keys(l)) {
		value := l[key]
		if value == "" || droppedLabels[key] {
			continue
		}
		key = labelInvalid.ReplaceAllString(labelSeparators.ReplaceAllString(strings.ToLower(key), "_"), "")
		if key == "" {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		out = append(out, key, value)
	}
	return out
}
