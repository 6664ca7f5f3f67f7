package fileimport

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads the first worksheet of a workbook. The first non-blank row
// is the header.
func ParseXLSX(data []byte, maxRows int) (*Table, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoWorksheet
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %q: %w", sheets[0], err)
	}

	headerAt := -1
	for i, rec := range records {
		if !blank(rec) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrMissingHeader
	}

	table := &Table{Headers: uniqueHeaders(records[headerAt])}
	for i := headerAt + 1; i < len(records); i++ {
		if blank(records[i]) {
			continue
		}
		if maxRows > 0 && len(table.Rows) >= maxRows {
			return nil, ErrTooManyRows
		}
		table.Rows = append(table.Rows, *newRow(i+1, table.Headers, records[i]))
	}
	if len(table.Rows) == 0 {
		return nil, ErrNoDataRows
	}
	return table, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
