package middleware

import (
	"net/http"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit rejects requests whose declared body exceeds maxBytes and caps
// the bytes read from chunked bodies
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			abort(c, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
