package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"document-qa-platform/utils"
)

// RequestSizeLimit rejects requests whose declared body size exceeds
// maxSize before the handler reads them.
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge,
				"request_too_large", "Request body exceeds maximum size")
			c.Abort()
			return
		}
		c.Next()
	}
}
