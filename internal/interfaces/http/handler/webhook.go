package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	integrationapp "github.com/alexthecreator0001/woowms-sub001/internal/application/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/interfaces/http/dto"
	"github.com/alexthecreator0001/woowms-sub001/internal/interfaces/http/middleware"
)

// WooCommerce webhook headers
const (
	HeaderWebhookTopic      = "X-WC-Webhook-Topic"
	HeaderWebhookSignature  = "X-WC-Webhook-Signature"
	HeaderWebhookDeliveryID = "X-WC-Webhook-Delivery-ID"
)

// WebhookIngester processes one verified-or-not delivery
type WebhookIngester interface {
	Handle(ctx context.Context, d integrationapp.WebhookDelivery) (*integrationapp.WebhookResult, error)
}

// WebhookHandler receives WooCommerce webhooks. The route is unauthenticated;
// the HMAC signature is the authentication.
type WebhookHandler struct {
	BaseHandler
	ingester WebhookIngester
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(ingester WebhookIngester) *WebhookHandler {
	return &WebhookHandler{ingester: ingester}
}

// HandleWooCommerce godoc
//
//	@ID				handleWooCommerceWebhook
//	@Summary		Receive a WooCommerce webhook
//	@Description	Verifies the HMAC signature of the raw body and syncs the entity named by the topic
//	@Tags			webhooks
//	@Accept			json
//	@Produce		json
//	@Param			storeId						path		string	true	"Store ID"
//	@Param			X-WC-Webhook-Signature		header		string	false	"base64 HMAC-SHA256 of the body"
//	@Param			X-WC-Webhook-Topic			header		string	false	"Topic, e.g. order.updated"
//	@Param			X-WC-Webhook-Delivery-ID	header		string	false	"Delivery id used for deduplication"
//	@Success		200							{object}	dto.Response{data=integrationapp.WebhookResult}
//	@Failure		401							{object}	dto.Response
//	@Failure		404							{object}	dto.Response
//	@Failure		413							{object}	dto.Response
//	@Router			/webhooks/woocommerce/{storeId} [post]
func (h *WebhookHandler) HandleWooCommerce(c *gin.Context) {
	storeID, ok := h.uuidParam(c, "storeId")
	if !ok {
		return
	}

	// the signature covers the exact bytes received
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(dto.ErrCodeRequestTooLarge,
				"Webhook body exceeds maximum allowed size", middleware.GetRequestID(c)))
			return
		}
		h.BadRequest(c, "Failed to read request body")
		return
	}

	result, err := h.ingester.Handle(c.Request.Context(), integrationapp.WebhookDelivery{
		StoreID:    storeID,
		Topic:      c.GetHeader(HeaderWebhookTopic),
		Signature:  c.GetHeader(HeaderWebhookSignature),
		DeliveryID: c.GetHeader(HeaderWebhookDeliveryID),
		Body:       body,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
