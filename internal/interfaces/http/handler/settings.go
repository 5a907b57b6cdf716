package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	integrationapp "github.com/alexthecreator0001/woowms-sub001/internal/application/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/interfaces/http/middleware"
)

// SettingsAPI reads and writes the caller's tenant settings
type SettingsAPI interface {
	GetSettings(ctx context.Context) (*integrationapp.SettingsResponse, error)
	UpdateSettings(ctx context.Context, req integrationapp.UpdateSettingsRequest) (*integrationapp.SettingsResponse, error)
}

// SettingsHandler handles tenant settings endpoints
type SettingsHandler struct {
	BaseHandler
	settings SettingsAPI
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settings SettingsAPI) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get godoc
//
//	@ID			getTenantSettings
//	@Summary	Get tenant settings
//	@Tags		settings
//	@Produce	json
//	@Success	200	{object}	dto.Response{data=integrationapp.SettingsResponse}
//	@Security	BearerAuth
//	@Router		/api/v1/settings [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.settings.GetSettings(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// Update godoc
//
//	@ID			updateTenantSettings
//	@Summary	Update tenant settings
//	@Tags		settings
//	@Accept		json
//	@Produce	json
//	@Param		request	body		integrationapp.UpdateSettingsRequest	true	"Changes"
//	@Success	200		{object}	dto.Response{data=integrationapp.SettingsResponse}
//	@Failure	400		{object}	dto.Response
//	@Security	BearerAuth
//	@Router		/api/v1/settings [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	var req integrationapp.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}
	settings, err := h.settings.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}
