package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	integrationapp "github.com/alexthecreator0001/woowms-sub001/internal/application/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/interfaces/http/middleware"
)

// StoreAPI is the store onboarding and manual sync surface
type StoreAPI interface {
	CreateStore(ctx context.Context, req integrationapp.CreateStoreRequest) (*integrationapp.StoreResponse, error)
	GetStore(ctx context.Context, id uuid.UUID) (*integrationapp.StoreResponse, error)
	UpdateStore(ctx context.Context, id uuid.UUID, req integrationapp.UpdateStoreRequest) (*integrationapp.StoreResponse, error)
	RotateCredentials(ctx context.Context, id uuid.UUID, req integrationapp.RotateCredentialsRequest) (*integrationapp.StoreResponse, error)
	DeactivateStore(ctx context.Context, id uuid.UUID) error
	TriggerSync(ctx context.Context, id uuid.UUID) (*integrationapp.ManualSyncResponse, error)
}

// StoreHandler handles store API endpoints. All routes are tenant scoped by
// the JWT middleware.
type StoreHandler struct {
	BaseHandler
	stores StoreAPI
}

// NewStoreHandler creates a new StoreHandler
func NewStoreHandler(stores StoreAPI) *StoreHandler {
	return &StoreHandler{stores: stores}
}

// Create godoc
//
//	@ID				createStore
//	@Summary		Connect a WooCommerce store
//	@Description	Credentials are encrypted before they are stored and never returned
//	@Tags			stores
//	@Accept			json
//	@Produce		json
//	@Param			request	body		integrationapp.CreateStoreRequest	true	"Store connection"
//	@Success		201		{object}	dto.Response{data=integrationapp.StoreResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		401		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/api/v1/stores [post]
func (h *StoreHandler) Create(c *gin.Context) {
	var req integrationapp.CreateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	store, err := h.stores.CreateStore(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, store)
}

// Get godoc
//
//	@ID				getStore
//	@Summary		Get a store
//	@Tags			stores
//	@Produce		json
//	@Param			id	path		string	true	"Store ID"
//	@Success		200	{object}	dto.Response{data=integrationapp.StoreResponse}
//	@Failure		404	{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/api/v1/stores/{id} [get]
func (h *StoreHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	store, err := h.stores.GetStore(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, store)
}

// Update godoc
//
//	@ID				updateStore
//	@Summary		Update a store's name or sync settings
//	@Tags			stores
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string								true	"Store ID"
//	@Param			request	body		integrationapp.UpdateStoreRequest	true	"Changes"
//	@Success		200		{object}	dto.Response{data=integrationapp.StoreResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		404		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/api/v1/stores/{id} [put]
func (h *StoreHandler) Update(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req integrationapp.UpdateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	store, err := h.stores.UpdateStore(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, store)
}

// RotateCredentials godoc
//
//	@ID				rotateStoreCredentials
//	@Summary		Replace a store's API credentials
//	@Description	Clears the reconnect flag and drops the cached client
//	@Tags			stores
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string									true	"Store ID"
//	@Param			request	body		integrationapp.RotateCredentialsRequest	true	"New credentials"
//	@Success		200		{object}	dto.Response{data=integrationapp.StoreResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		404		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/api/v1/stores/{id}/credentials [put]
func (h *StoreHandler) RotateCredentials(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req integrationapp.RotateCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	store, err := h.stores.RotateCredentials(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, store)
}

// Delete godoc
//
//	@ID				deactivateStore
//	@Summary		Deactivate a store
//	@Description	Soft delete: the store stops syncing and rejects webhooks
//	@Tags			stores
//	@Param			id	path	string	true	"Store ID"
//	@Success		204
//	@Failure		404	{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/api/v1/stores/{id} [delete]
func (h *StoreHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.stores.DeactivateStore(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Sync godoc
//
//	@ID				triggerStoreSync
//	@Summary		Sync a store now
//	@Description	Runs the order then product walkers regardless of the sync interval. An aborted run answers with the upstream error and the reports produced so far.
//	@Tags			stores
//	@Produce		json
//	@Param			id	path		string	true	"Store ID"
//	@Success		200	{object}	dto.Response{data=integrationapp.ManualSyncResponse}
//	@Failure		404	{object}	dto.Response
//	@Failure		422	{object}	dto.Response
//	@Failure		502	{object}	dto.Response
//	@Failure		503	{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/api/v1/stores/{id}/sync [post]
func (h *StoreHandler) Sync(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.stores.TriggerSync(c.Request.Context(), id)
	if err != nil {
		if resp != nil {
			h.HandleErrorWithData(c, err, resp)
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
