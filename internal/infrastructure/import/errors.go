// Package fileimport reads CSV and XLSX uploads into rows, maps their columns
// onto entity fields and coerces cell text into typed values.
package fileimport

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyFile is returned when the file has no content
	ErrEmptyFile = errors.New("file is empty")

	// ErrMissingHeader is returned when no header row could be read
	ErrMissingHeader = errors.New("file is missing a header row")

	// ErrNoDataRows is returned when the file has a header but no data
	ErrNoDataRows = errors.New("file contains no data rows")

	// ErrTooManyRows is returned when a file exceeds the row limit
	ErrTooManyRows = errors.New("file exceeds the maximum number of rows")

	// ErrNoWorksheet is returned for workbooks without sheets
	ErrNoWorksheet = errors.New("workbook has no worksheets")
)

// CoercionError reports a cell value that could not be converted
type CoercionError struct {
	Kind  string
	Value string
	Hint  string
}

func (e *CoercionError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("could not parse %s %q: %s", e.Kind, e.Value, e.Hint)
	}
	return fmt.Sprintf("could not parse %s %q", e.Kind, e.Value)
}

func coercionError(kind, value, hint string) error {
	return &CoercionError{Kind: kind, Value: value, Hint: hint}
}
