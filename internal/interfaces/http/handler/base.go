package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/logger"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/dto"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct {
	logger *zap.Logger
}

func newBase(log *zap.Logger) BaseHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return BaseHandler{logger: log}
}

// actor returns the authenticated caller. It writes a 401 and returns false
// when the route was mounted without the auth middleware.
func (h *BaseHandler) actor(c *gin.Context) (core.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		h.Error(c, shared.CodeUnauthorized, "Authentication required")
		return core.Actor{}, false
	}
	return actor, true
}

// pathID parses the uuid path parameter name
func (h *BaseHandler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, dto.ErrCodeBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes and validates the body into req
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.bindError(c, err, "Invalid request body")
		return false
	}
	return true
}

// bindQuery decodes and validates the query string into req
func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.bindError(c, err, "Invalid query parameters")
		return false
	}
	return true
}

func (h *BaseHandler) bindError(c *gin.Context, err error, message string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		h.Error(c, dto.ErrCodeValidation, "Request validation failed", middleware.ValidationDetails(err)...)
		return
	}
	h.Error(c, dto.ErrCodeBadRequest, message)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response, deriving the status from code
func (h *BaseHandler) Error(c *gin.Context, code, message string, details ...dto.ErrorDetail) {
	c.JSON(dto.StatusFor(code), dto.NewErrorResponse(code, message, middleware.GetRequestID(c), details...))
}

// HandleError converts service errors to HTTP responses. Anything that is
// not a domain error is logged and hidden behind a generic 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Error(c, domainErr.Code, domainErr.Message)
		return
	}

	logger.L(c.Request.Context()).Error("Request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	h.Error(c, dto.ErrCodeInternal, "An unexpected error occurred")
}

// page writes a paginated listing or the error that produced it
func page[T any](h *BaseHandler, c *gin.Context, result shared.Paginated[T], err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(result))
}

// respond writes data with status 200, or the error
func respond(h *BaseHandler, c *gin.Context, data any, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, data)
}

// created writes data with status 201, or the error
func created(h *BaseHandler, c *gin.Context, data any, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, data)
}

// deleteByID runs del for the :id path parameter and answers 204
func (h *BaseHandler) deleteByID(c *gin.Context, del func(context.Context, core.Actor, uuid.UUID) error) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := del(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// optionalUUID parses a query value already checked by the uuid binding tag
func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
