package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/logger"
	"github.com/alexthecreator0001/woowms-sub001/internal/interfaces/http/dto"
	"github.com/alexthecreator0001/woowms-sub001/internal/interfaces/http/middleware"
)

// BaseHandler writes the response envelope for the embedding handlers
type BaseHandler struct{}

func (BaseHandler) Success(c *gin.Context, data any) { c.JSON(http.StatusOK, dto.NewSuccessResponse(data)) }

func (BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

func (BaseHandler) NoContent(c *gin.Context) { c.Status(http.StatusNoContent) }

func (BaseHandler) BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, message, middleware.GetRequestID(c)))
}

// HandleError answers err through dto.FromError
func (h BaseHandler) HandleError(c *gin.Context, err error) { h.HandleErrorWithData(c, err, nil) }

// HandleErrorWithData attaches the partial result of an operation that
// failed part way. 5xx answers are logged; client errors are not.
func (BaseHandler) HandleErrorWithData(c *gin.Context, err error, data any) {
	if err == nil {
		return
	}
	status, resp := dto.FromError(err, middleware.GetRequestID(c))
	if status >= http.StatusInternalServerError {
		logger.L(c.Request.Context()).Error("Request failed",
			zap.String("route", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	resp.Data = data
	c.JSON(status, resp)
}

// uuidParam reads path parameter name as a UUID and answers 400 otherwise
func (h BaseHandler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name)
	}
	return id, err == nil
}
