package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GinRequestIDKey is the gin context key the request id middleware writes to
const GinRequestIDKey = "request_id"

// GinMiddleware logs one line per request and puts a request-scoped logger
// into the request context
func GinMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		ctx := WithContext(c.Request.Context(), base)
		if id := c.GetString(GinRequestIDKey); id != "" {
			ctx = WithRequestID(ctx, id)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		l := L(c.Request.Context())
		switch {
		case status >= http.StatusInternalServerError:
			l.Error("request", fields...)
		case status >= http.StatusBadRequest:
			l.Warn("request", fields...)
		default:
			l.Info("request", fields...)
		}
	}
}

// Recovery turns a panic into a 500 response and logs it with the stack
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				base.Error("panic recovered",
					zap.String("request_id", c.GetString(GinRequestIDKey)),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
					zap.Stack("stacktrace"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":       "INTERNAL_ERROR",
						"message":    "An unexpected error occurred",
						"request_id": c.GetString(GinRequestIDKey),
					},
				})
			}
		}()
		c.Next()
	}
}
