package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPObserver records served requests
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, start time.Time)
}

// Metrics records every request against its route template. Requests that
// matched no route share the "unmatched" label.
func Metrics(obs HTTPObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		obs.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), start)
	}
}
