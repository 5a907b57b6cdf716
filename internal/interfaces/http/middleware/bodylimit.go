package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alexthecreator0001/woowms-sub001/internal/interfaces/http/dto"
)

// BodyLimit rejects a declared Content-Length over limit with 413 and caps
// streamed bodies at limit bytes; reading past the cap fails with
// *http.MaxBytesError.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			abortWithError(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Request body too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
