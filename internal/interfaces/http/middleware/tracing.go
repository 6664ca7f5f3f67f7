package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request through otelgin. Pair it with
// TraceRequest, which annotates the span.
func Tracing(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TraceRequest tags the request span with the request id and marks 4xx and
// 5xx responses as errors. It is installed right after Tracing.
func TraceRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}
		if id := GetRequestID(c); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, "Internal Server Error")
			return
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

// TraceActor adds the tenant and user of the authenticated caller to the
// request span. It must run after Auth.
func TraceActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if actor, ok := GetActor(c); ok && span.IsRecording() {
			span.SetAttributes(
				attribute.String("tenant_id", actor.TenantID.String()),
				attribute.String("user_id", actor.UserID.String()),
			)
		}
		c.Next()
	}
}
