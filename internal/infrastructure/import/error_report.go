package fileimport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/imports"
)

var errorReportHeader = []string{"row", "column", "error_type", "message", "original_value"}

// WriteErrorReport renders row errors as CSV
func WriteErrorReport(errs []imports.RowError) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(errorReportHeader); err != nil {
		return nil, fmt.Errorf("write error report header: %w", err)
	}
	for _, e := range errs {
		record := []string{strconv.Itoa(e.RowNumber), deref(e.ColumnName), string(e.ErrorType), e.ErrorMessage, deref(e.OriginalValue)}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write error report row %d: %w", e.RowNumber, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush error report: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
