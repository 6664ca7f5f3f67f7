package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/auth"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Gin context keys written by Auth
const (
	ActorKey  = "actor"
	ClaimsKey = "jwt_claims"

	bearerPrefix = "Bearer "
)

// Authenticator resolves a bearer token to the calling actor
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (core.Actor, *auth.Claims, error)
}

// Auth requires a valid bearer access token. The resolved actor and claims
// are stored on the gin context, and the tenant and user ids on the request logger.
func Auth(authn Authenticator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok || strings.TrimSpace(token) == "" {
			abort(c, shared.CodeUnauthorized, "Authentication required")
			return
		}

		actor, claims, err := authn.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			var de *shared.DomainError
			if errors.As(err, &de) {
				log.Debug("Authentication rejected", zap.String("reason", de.Message), zap.String("path", c.Request.URL.Path))
				abort(c, de.Code, de.Message)
				return
			}
			log.Error("Authentication failed", zap.Error(err))
			abort(c, shared.CodeUnauthorized, "Authentication required")
			return
		}

		c.Set(ActorKey, actor)
		c.Set(ClaimsKey, claims)

		ctx := logger.WithTenantID(c.Request.Context(), actor.TenantID.String())
		ctx = logger.WithUserID(ctx, actor.UserID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetActor returns the authenticated actor carrying the caller's address
func GetActor(c *gin.Context) (core.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return core.Actor{}, false
	}
	actor, ok := v.(core.Actor)
	if !ok {
		return core.Actor{}, false
	}
	return actor.WithRequest(c.ClientIP(), c.Request.UserAgent()), true
}

// GetClaims returns the claims of the access token used for the request
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
