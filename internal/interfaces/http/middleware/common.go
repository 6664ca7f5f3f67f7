package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/logger"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in and out
const RequestIDHeader = "X-Request-ID"

// RequestID reuses the caller's request id or generates one, and echoes it back
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(logger.GinRequestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID
func GetRequestID(c *gin.Context) string {
	return c.GetString(logger.GinRequestIDKey)
}

// CORSConfig holds CORS middleware configuration. An empty AllowOrigins
// list disables cross-origin access.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig returns default CORS configuration
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Accept", "Origin", "Cache-Control", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader, "Content-Disposition", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORS answers preflight requests and sets the CORS headers for allowed origins
func CORS(cfg CORSConfig) gin.HandlerFunc {
	wildcard := slices.Contains(cfg.AllowOrigins, "*")
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := ""
		switch {
		case origin == "":
		case wildcard:
			allowed = "*"
		case slices.Contains(cfg.AllowOrigins, origin):
			allowed = origin
		}

		if allowed != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", allowed)
			h.Add("Vary", "Origin")
			if cfg.AllowCredentials && allowed != "*" {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowMethods, ", "))
			h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowHeaders, ", "))
			if len(cfg.ExposeHeaders) > 0 {
				h.Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposeHeaders, ", "))
			}
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge.Seconds())))
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Secure sets the usual hardening headers for a JSON API
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Next()
	}
}

func abort(c *gin.Context, code, message string, details ...dto.ErrorDetail) {
	c.AbortWithStatusJSON(dto.StatusFor(code), dto.NewErrorResponse(code, message, GetRequestID(c), details...))
}
