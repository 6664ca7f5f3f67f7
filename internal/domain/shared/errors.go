package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so that errors.Is works against the
// sentinel values below even when the message was customised.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if !errors.As(target, &de) {
		return false
	}
	return de.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a domain error with a formatted message
func Errorf(code, format string, args ...any) *DomainError {
	return NewDomainError(code, fmt.Sprintf(format, args...))
}

// Error codes used across modules
const (
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeInvalidState        = "INVALID_STATE"
	CodeHasDependents       = "HAS_DEPENDENTS"
	CodeCircularReference   = "CIRCULAR_REFERENCE"
	CodeInvalidHierarchy    = "INVALID_HIERARCHY"
	CodeDualVerification    = "DUAL_VERIFICATION"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrForbidden           = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrHasDependents       = NewDomainError(CodeHasDependents, "Resource still has dependent records")
)

// NotFound returns a NOT_FOUND error naming the missing resource
func NotFound(resource string, id fmt.Stringer) *DomainError {
	return Errorf(CodeNotFound, "%s %s not found", resource, id)
}
