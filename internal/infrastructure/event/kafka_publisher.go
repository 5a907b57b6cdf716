package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/config"
)

// DefaultTopic receives sync events when none is configured
const DefaultTopic = "woowms.sync-events"

// MessageWriter is the subset of *kafka.Writer the publisher needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes sync events to a Kafka topic. The writer runs in
// async mode: Publish never blocks the sync path and delivery errors are
// logged from the completion callback.
type KafkaPublisher struct {
	writer MessageWriter
	logger *zap.Logger
	closed atomic.Bool
}

var _ integration.SyncEventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher builds an async writer for cfg
func NewKafkaPublisher(cfg config.KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("kafka")

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 100 * time.Millisecond
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           batchTimeout,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafka.Message, err error) {
			if err == nil {
				return
			}
			for _, m := range messages {
				logger.Error("Failed to deliver sync event",
					zap.String("event_type", Header(m, HeaderEventType)),
					zap.String("event_id", Header(m, HeaderEventID)),
					zap.String("store_id", string(m.Key)),
					zap.Error(err),
				)
			}
		},
	}
	return NewKafkaPublisherWithWriter(w, logger)
}

// NewKafkaPublisherWithWriter wraps an existing writer
func NewKafkaPublisherWithWriter(w MessageWriter, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{writer: w, logger: logger}
}

// Publish implements integration.SyncEventPublisher
func (p *KafkaPublisher) Publish(ctx context.Context, e integration.SyncEvent) {
	if p.closed.Load() {
		p.logger.Warn("Sync event dropped, publisher closed", zap.String("event_type", e.Type))
		return
	}
	msg, err := Encode(e)
	if err != nil {
		p.logger.Error("Failed to encode sync event", zap.String("event_type", e.Type), zap.Error(err))
		return
	}
	// the sync run's ctx may end before the async batch is flushed
	if err := p.writer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		p.logger.Error("Failed to publish sync event",
			zap.String("event_type", e.Type),
			zap.String("store_id", e.StoreID.String()),
			zap.Error(err),
		)
	}
}

// Close flushes pending messages and closes the writer
func (p *KafkaPublisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}
