package integration

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/domain/shared"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/logger"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/tenant"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/telemetry"
)

// WebhookOutcome says what happened to a delivery
type WebhookOutcome string

const (
	WebhookSynced    WebhookOutcome = "synced"
	WebhookPing      WebhookOutcome = "ping"
	WebhookIgnored   WebhookOutcome = "ignored"
	WebhookDuplicate WebhookOutcome = "duplicate"
	WebhookRejected  WebhookOutcome = "rejected"
	WebhookNotFound  WebhookOutcome = "not_found"
)

// WebhookDelivery is one inbound webhook request
type WebhookDelivery struct {
	StoreID    uuid.UUID
	Topic      string
	Signature  string
	DeliveryID string
	Body       []byte
}

// WebhookResult is returned for acknowledged deliveries
type WebhookResult struct {
	Outcome WebhookOutcome          `json:"outcome"`
	Report  *integration.SyncReport `json:"report,omitempty"`
}

// WebhookConfig holds webhook ingest settings
type WebhookConfig struct {
	DedupEnabled bool
	DedupTTL     time.Duration
	// RunTimeout bounds the walker run started by one delivery
	RunTimeout time.Duration
}

// Decrypter reveals an encrypted store credential
type Decrypter interface {
	Decrypt(stored string) (string, error)
}

// EntityRunner runs one walker for a store. SyncCoordinator implements it.
type EntityRunner interface {
	RunOrders(ctx context.Context, store *integration.Store, trigger integration.SyncTrigger) (*integration.SyncReport, error)
	RunProducts(ctx context.Context, store *integration.Store, trigger integration.SyncTrigger) (*integration.SyncReport, error)
}

// WebhookService verifies and ingests store webhooks
type WebhookService struct {
	stores     integration.StoreRepository
	decrypter  Decrypter
	runner     EntityRunner
	deliveries shared.DeliveryStore
	metrics    *telemetry.SyncMetrics
	config     WebhookConfig
	logger     *zap.Logger
}

// NewWebhookService creates the webhook ingest service. deliveries may be
// nil when deduplication is disabled.
func NewWebhookService(
	stores integration.StoreRepository,
	decrypter Decrypter,
	runner EntityRunner,
	deliveries shared.DeliveryStore,
	metrics *telemetry.SyncMetrics,
	config WebhookConfig,
	log *zap.Logger,
) *WebhookService {
	if config.DedupTTL <= 0 {
		config.DedupTTL = shared.DefaultDeliveryDedupConfig().TTL
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 5 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookService{
		stores:     stores,
		decrypter:  decrypter,
		runner:     runner,
		deliveries: deliveries,
		metrics:    metrics,
		config:     config,
		logger:     log.Named("webhook"),
	}
}

// Handle processes one delivery.
//
// Unknown or inactive stores yield ErrStoreNotFound. A missing webhook
// secret or a bad signature yields ErrWebhookSecretMissing or
// ErrSignatureInvalid; nothing is written in either case. Once verified the
// delivery is always acknowledged: walker failures are logged and returned
// inside the result, not as an error.
func (s *WebhookService) Handle(ctx context.Context, d WebhookDelivery) (result *WebhookResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "webhook.handle",
		telemetry.Attr(telemetry.SpanAttrStoreID, d.StoreID.String()),
		telemetry.Attr(telemetry.SpanAttrTopic, d.Topic),
		telemetry.Attr(telemetry.SpanAttrDeliveryID, d.DeliveryID),
	)
	defer func() {
		outcome := WebhookRejected
		if result != nil {
			outcome = result.Outcome
		} else if errors.Is(err, integration.ErrStoreNotFound) {
			outcome = WebhookNotFound
		}
		s.metrics.RecordWebhook(ctx, d.Topic, string(outcome))
		telemetry.SetAttributes(span, telemetry.SpanAttrOutcome, string(outcome))
		telemetry.EndSpan(span, err)
	}()

	store, err := s.stores.SystemFindByID(tenant.WithSystemScope(ctx), d.StoreID)
	if err != nil {
		return nil, err
	}
	if !store.IsActive {
		return nil, integration.ErrStoreNotFound
	}

	ctx = tenant.ContextFor(ctx, store.TenantID)
	ctx, _ = logger.WithStoreID(ctx, s.logger, store.ID.String())
	log := logger.WithLogger(ctx, s.logger).With(
		zap.String("topic", d.Topic),
		zap.String("delivery_id", d.DeliveryID),
	)

	// the ping sent when a webhook is saved carries no topic and no signature
	if isPing(d) {
		log.Info("Webhook ping acknowledged")
		return &WebhookResult{Outcome: WebhookPing}, nil
	}

	if err := s.verify(store, d); err != nil {
		log.Warn("Webhook rejected", zap.Error(err))
		return nil, err
	}

	entity, ok := topicEntity(d.Topic)
	if !ok {
		log.Debug("Webhook topic ignored")
		return &WebhookResult{Outcome: WebhookIgnored}, nil
	}

	if s.config.DedupEnabled && s.deliveries != nil && d.DeliveryID != "" {
		fresh, err := s.deliveries.MarkProcessed(ctx, store.ID.String()+":"+d.DeliveryID, s.config.DedupTTL)
		switch {
		case err != nil:
			log.Warn("Delivery dedup unavailable, processing anyway", zap.Error(err))
		case !fresh:
			log.Info("Duplicate webhook delivery acknowledged")
			return &WebhookResult{Outcome: WebhookDuplicate}, nil
		}
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.RunTimeout)
	defer cancel()

	var report *integration.SyncReport
	var runErr error
	if entity == integration.SyncEntityOrders {
		report, runErr = s.runner.RunOrders(runCtx, store, integration.TriggerWebhook)
	} else {
		report, runErr = s.runner.RunProducts(runCtx, store, integration.TriggerWebhook)
	}
	if runErr != nil {
		log.Warn("Webhook-triggered sync failed", zap.Error(runErr))
	}
	return &WebhookResult{Outcome: WebhookSynced, Report: report}, nil
}

func (s *WebhookService) verify(store *integration.Store, d WebhookDelivery) error {
	if store.WebhookSecret == "" {
		return integration.ErrWebhookSecretMissing
	}
	secret, err := s.decrypter.Decrypt(store.WebhookSecret)
	if err != nil {
		s.logger.Error("Failed to decrypt webhook secret",
			zap.String("store_id", store.ID.String()),
			zap.Error(err),
		)
		return integration.ErrSignatureInvalid
	}
	if !VerifySignature(secret, d.Body, d.Signature) {
		return integration.ErrSignatureInvalid
	}
	return nil
}

// SignPayload returns the base64 HMAC-SHA256 of body under secret, as sent
// in X-WC-Webhook-Signature
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against body in constant time
func VerifySignature(secret string, body []byte, signature string) bool {
	got, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}

func isPing(d WebhookDelivery) bool {
	return strings.TrimSpace(d.Topic) == "" && bytes.HasPrefix(bytes.TrimSpace(d.Body), []byte("webhook_id="))
}

// topicEntity maps "order.updated" style topics to the walker to run
func topicEntity(topic string) (integration.SyncEntity, bool) {
	resource, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(topic)), ".")
	switch resource {
	case "order":
		return integration.SyncEntityOrders, true
	case "product":
		return integration.SyncEntityProducts, true
	default:
		return "", false
	}
}
