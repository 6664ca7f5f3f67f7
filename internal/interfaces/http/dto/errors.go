package dto

import (
	"net/http"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
)

// Codes produced by the HTTP layer itself. Domain codes pass through unchanged.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRouteNotFound   = "ROUTE_NOT_FOUND"
)

var statusByCode = map[string]int{
	shared.CodeNotFound:            http.StatusNotFound,
	ErrCodeRouteNotFound:           http.StatusNotFound,
	shared.CodeForbidden:           http.StatusForbidden,
	shared.CodeUnauthorized:        http.StatusUnauthorized,
	shared.CodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:                http.StatusConflict,
	shared.CodeConcurrencyConflict: http.StatusConflict,
	ErrCodeRateLimited:             http.StatusTooManyRequests,
	ErrCodeRequestTooLarge:         http.StatusRequestEntityTooLarge,
	ErrCodeInternal:                http.StatusInternalServerError,
}

// StatusFor maps an error code to its HTTP status. Any other domain code is a
// rejected request and maps to 400.
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusBadRequest
}
