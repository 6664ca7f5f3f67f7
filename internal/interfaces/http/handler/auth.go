package handler

import (
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/identity"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	BaseHandler
	authService *identity.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *identity.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{BaseHandler: newBase(log), authService: authService}
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,max=128"`
}

// RefreshRequest is the body of POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest is the optional body of POST /auth/logout
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login godoc
//
//	@ID				login
//	@Summary		Sign in
//	@Description	Exchange email and password for an access and refresh token pair
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Credentials"
//	@Success		200		{object}	dto.Response{data=identity.LoginResult}
//	@Failure		400		{object}	dto.Response
//	@Failure		401		{object}	dto.Response
//	@Router			/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), identity.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	respond(&h.BaseHandler, c, result, err)
}

// Refresh godoc
//
//	@ID				refreshToken
//	@Summary		Refresh tokens
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	dto.Response{data=identity.TokenResult}
//	@Failure		401		{object}	dto.Response
//	@Router			/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	respond(&h.BaseHandler, c, result, err)
}

// Logout revokes the presented access token and, when given, the refresh token
func (h *AuthHandler) Logout(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)
	if claims == nil {
		h.Error(c, shared.CodeUnauthorized, "Authentication required")
		return
	}

	var req LogoutRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}

	err := h.authService.Logout(c.Request.Context(), actor, identity.LogoutInput{
		AccessJTI:    claims.ID,
		AccessTTL:    claims.GetRemainingTTL(),
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Me returns the signed-in user with their assignments and permissions
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	me, err := h.authService.Me(c.Request.Context(), actor)
	respond(&h.BaseHandler, c, me, err)
}
