package fileimport

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/imports"
)

// Row is one data row keyed by header name
type Row struct {
	// Number is the 1-based line (CSV) or sheet row (XLSX) the data came from
	Number int
	Values map[string]string
}

func newRow(number int, headers, record []string) *Row {
	row := &Row{Number: number, Values: make(map[string]string, len(headers))}
	for i, h := range headers {
		if i < len(record) {
			row.Values[h] = strings.TrimSpace(record[i])
		} else {
			row.Values[h] = ""
		}
	}
	return row
}

// Get returns the value for a header
func (r Row) Get(header string) string {
	return r.Values[header]
}

// IsEmpty reports whether every cell is blank
func (r Row) IsEmpty() bool {
	for _, v := range r.Values {
		if v != "" {
			return false
		}
	}
	return true
}

// Mapped projects the row onto target fields using a source column to field mapping
func (r Row) Mapped(mapping map[string]string) map[string]string {
	out := make(map[string]string, len(mapping))
	for column, field := range mapping {
		if field == "" {
			continue
		}
		if v, ok := r.Values[column]; ok {
			out[field] = v
		}
	}
	return out
}

// Table is a parsed file
type Table struct {
	Headers []string
	Rows    []Row
}

// Parse reads a whole file of the given format. maxRows of zero means unlimited.
func Parse(format imports.FileFormat, data []byte, maxRows int) (*Table, error) {
	switch format {
	case imports.FormatCSV:
		return parseCSV(data, maxRows)
	case imports.FormatXLSX:
		return ParseXLSX(data, maxRows)
	default:
		return nil, fmt.Errorf("unsupported file format %q", format)
	}
}

func parseCSV(data []byte, maxRows int) (*Table, error) {
	p, err := NewCSVParser(bytes.NewReader(data), WithMaxRows(maxRows))
	if err != nil {
		return nil, err
	}
	if err := p.ParseHeader(); err != nil {
		return nil, err
	}
	rows, err := p.ReadAllRows()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}
	return &Table{Headers: p.Headers(), Rows: rows}, nil
}
