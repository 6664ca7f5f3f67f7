package dto

import (
	"net/http"
	"testing"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeForbidden, http.StatusForbidden},
		{shared.CodeUnauthorized, http.StatusUnauthorized},
		{shared.CodeAlreadyExists, http.StatusConflict},
		{shared.CodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeConflict, http.StatusConflict},
		{shared.CodeInvalidInput, http.StatusBadRequest},
		{shared.CodeInvalidState, http.StatusBadRequest},
		{shared.CodeHasDependents, http.StatusBadRequest},
		{shared.CodeCircularReference, http.StatusBadRequest},
		{shared.CodeDualVerification, http.StatusBadRequest},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.code))
		})
	}
}

func TestNewPageResponse(t *testing.T) {
	page := shared.NewPaginated([]string{"a", "b"}, 45, 2, 20)
	resp := NewPageResponse(page)

	assert.True(t, resp.Success)
	assert.Equal(t, []string{"a", "b"}, resp.Data)
	assert.Equal(t, &Meta{Total: 45, Page: 2, PageSize: 20, TotalPages: 3}, resp.Meta)
}

func TestPageQuery_Normalize(t *testing.T) {
	page, size := PageQuery{}.Normalize()
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)

	page, size = PageQuery{Page: 3, PageSize: 50}.Normalize()
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, size)
}
