package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	integrationapp "github.com/alexthecreator0001/woowms-sub001/internal/application/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/interfaces/http/dto"
)

// StockPusher writes a product's local stock back to its store
type StockPusher interface {
	Push(ctx context.Context, productID uuid.UUID) (*integrationapp.PushResult, error)
	PushAsync(ctx context.Context, productID uuid.UUID)
}

// ProductHandler handles product endpoints
type ProductHandler struct {
	BaseHandler
	pusher StockPusher
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(pusher StockPusher) *ProductHandler {
	return &ProductHandler{pusher: pusher}
}

// PushStockAccepted is the body of an async push
type PushStockAccepted struct {
	ProductID uuid.UUID `json:"product_id"`
	Queued    bool      `json:"queued" example:"true"`
}

// PushStock godoc
//
//	@ID				pushProductStock
//	@Summary		Push local stock to the store
//	@Description	Sends available minus reserved to WooCommerce when stock push is enabled for the store. With async=true the push runs in the background.
//	@Tags			products
//	@Produce		json
//	@Param			id		path		string	true	"Product ID"
//	@Param			async	query		bool	false	"Run detached and answer 202"
//	@Success		200		{object}	dto.Response{data=integrationapp.PushResult}
//	@Success		202		{object}	dto.Response{data=PushStockAccepted}
//	@Failure		404		{object}	dto.Response
//	@Failure		502		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/api/v1/products/{id}/push-stock [post]
func (h *ProductHandler) PushStock(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	async := false
	if raw := c.Query("async"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.BadRequest(c, "Invalid async flag")
			return
		}
		async = v
	}

	if async {
		h.pusher.PushAsync(c.Request.Context(), id)
		c.JSON(http.StatusAccepted, dto.NewSuccessResponse(PushStockAccepted{ProductID: id, Queued: true}))
		return
	}

	result, err := h.pusher.Push(c.Request.Context(), id)
	if err != nil {
		if result != nil {
			h.HandleErrorWithData(c, err, result)
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
