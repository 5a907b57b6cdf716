package event

import (
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
)

// Message header names
const (
	HeaderEventType = "event-type"
	HeaderTenantID  = "tenant-id"
	HeaderEventID   = "event-id"
)

// Encode turns a sync event into a Kafka message keyed by store id, so all
// events of one store land on one partition in order
func Encode(e integration.SyncEvent) (kafka.Message, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal sync event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.StoreID.String()),
		Value: body,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(e.Type)},
			{Key: HeaderTenantID, Value: []byte(e.TenantID.String())},
			{Key: HeaderEventID, Value: []byte(e.ID.String())},
		},
	}, nil
}

// Decode parses a message produced by Encode
func Decode(m kafka.Message) (integration.SyncEvent, error) {
	var e integration.SyncEvent
	if err := json.Unmarshal(m.Value, &e); err != nil {
		return e, fmt.Errorf("failed to unmarshal sync event: %w", err)
	}
	return e, nil
}

// Header returns the value of a message header, or "" when absent
func Header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
