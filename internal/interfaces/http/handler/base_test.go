package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/dto"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestBaseHandler_HandleError(t *testing.T) {
	h := newBase(nil)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, shared.CodeNotFound},
		{"wrapped forbidden", fmt.Errorf("loading batch: %w", shared.ErrForbidden), http.StatusForbidden, shared.CodeForbidden},
		{"conflict", shared.NewDomainError(shared.CodeAlreadyExists, "fund exists"), http.StatusConflict, shared.CodeAlreadyExists},
		{"stale version", shared.NewDomainError(shared.CodeConcurrencyConflict, "modified"), http.StatusConflict, shared.CodeConcurrencyConflict},
		{"business rule", shared.NewDomainError(shared.CodeInvalidState, "locked"), http.StatusBadRequest, shared.CodeInvalidState},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := gin.New()
			engine.GET("/", func(c *gin.Context) { h.HandleError(c, tt.err) })

			w := testutil.PerformRequest(t, engine, http.MethodGet, "/", nil, nil)
			testutil.AssertErrorCode(t, w, tt.status, tt.code)
		})
	}

	t.Run("internal details are hidden", func(t *testing.T) {
		engine := gin.New()
		engine.GET("/", func(c *gin.Context) { h.HandleError(c, errors.New("pq: password authentication failed")) })

		w := testutil.PerformRequest(t, engine, http.MethodGet, "/", nil, nil)
		assert.NotContains(t, w.Body.String(), "password")
	})
}

func TestBaseHandler_ActorRequired(t *testing.T) {
	h := newBase(nil)
	engine := gin.New()
	engine.GET("/", func(c *gin.Context) {
		if _, ok := h.actor(c); ok {
			c.Status(http.StatusOK)
		}
	})

	w := testutil.PerformRequest(t, engine, http.MethodGet, "/", nil, nil)
	testutil.AssertErrorCode(t, w, http.StatusUnauthorized, shared.CodeUnauthorized)
}

func TestOptionalUUID(t *testing.T) {
	assert.Nil(t, optionalUUID(""))
	assert.Nil(t, optionalUUID("nope"))
	id := optionalUUID("0b5a3c43-40f4-4b65-9b37-7d6c2a3f1e01")
	if assert.NotNil(t, id) {
		assert.Equal(t, "0b5a3c43-40f4-4b65-9b37-7d6c2a3f1e01", id.String())
	}
}
