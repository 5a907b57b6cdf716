package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/tenant"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/scheduler"
)

// SchedulerStatus reports scheduler state for one tenant
type SchedulerStatus interface {
	StatusForTenant(tenantID uuid.UUID) scheduler.Status
}

// SyncStatusHandler exposes the background scheduler's view of the caller's stores
type SyncStatusHandler struct {
	BaseHandler
	status SchedulerStatus
}

// NewSyncStatusHandler creates a new SyncStatusHandler
func NewSyncStatusHandler(status SchedulerStatus) *SyncStatusHandler {
	return &SyncStatusHandler{status: status}
}

// Get godoc
//
//	@ID			getSyncStatus
//	@Summary	Scheduler status for the caller's stores
//	@Tags		sync
//	@Produce	json
//	@Success	200	{object}	dto.Response{data=scheduler.Status}
//	@Failure	401	{object}	dto.Response
//	@Security	BearerAuth
//	@Router		/api/v1/sync/status [get]
func (h *SyncStatusHandler) Get(c *gin.Context) {
	tenantID, err := tenant.FromContext(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.status.StatusForTenant(tenantID))
}
