package dto

import "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"

// Response is the envelope of every JSON response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo describes a failed request
type ErrorInfo struct {
	Code      string        `json:"code"`
	Message   string        `json:"message"`
	RequestID string        `json:"request_id,omitempty"`
	Details   []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail points at one invalid field
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta represents pagination metadata
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewPageResponse puts the page items in data and the counts in meta
func NewPageResponse[T any](page shared.Paginated[T]) Response {
	return Response{
		Success: true,
		Data:    page.Items,
		Meta: &Meta{
			Total:      page.Total,
			Page:       page.Page,
			PageSize:   page.PageSize,
			TotalPages: page.TotalPages,
		},
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message, requestID string, details ...ErrorDetail) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: requestID,
			Details:   details,
		},
	}
}

// PageQuery holds the common pagination query parameters
type PageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// Normalize fills in the defaults: first page of 20
func (q PageQuery) Normalize() (page, pageSize int) {
	page, pageSize = q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return page, pageSize
}
