package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of spans started here
const TracerName = "woowms-sync"

// Span attribute keys
const (
	SpanAttrTenantID   = "tenant_id"
	SpanAttrStoreID    = "store_id"
	SpanAttrEntity     = "sync.entity"
	SpanAttrPage       = "sync.page"
	SpanAttrProcessed  = "sync.processed"
	SpanAttrFailed     = "sync.failed"
	SpanAttrTopic      = "webhook.topic"
	SpanAttrDeliveryID = "webhook.delivery_id"
	SpanAttrOutcome    = "webhook.outcome"
	SpanAttrProductID  = "product_id"
	SpanAttrQuantity   = "quantity"
)

// StartSpan starts an internal span on the global tracer. The caller ends
// it, usually through EndSpan.
//
//	ctx, span := telemetry.StartSpan(ctx, "sync.orders",
//	    telemetry.Attr(telemetry.SpanAttrStoreID, store.ID))
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// Attr converts value to the closest attribute type; anything unknown is
// formatted with %v.
func Attr(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	}
	return attribute.String(key, fmt.Sprint(value))
}

// SetAttributes sets alternating key/value pairs on span. A pair whose key
// is not a string is skipped.
func SetAttributes(span trace.Span, kv ...any) {
	if span == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			attrs = append(attrs, Attr(key, kv[i+1]))
		}
	}
	span.SetAttributes(attrs...)
}

// RecordError marks span failed with err
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetOK marks span successful
func SetOK(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// EndSpan sets the status from err and ends span
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		RecordError(span, err)
	} else {
		SetOK(span)
	}
	span.End()
}
