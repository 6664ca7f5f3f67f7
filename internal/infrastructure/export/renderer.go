// Package export renders report query results into downloadable files.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/report"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName           = "Report"
	defaultProgressStep = 500
)

// FileRenderer writes query results as CSV or XLSX
type FileRenderer struct {
	progressStep int
}

// NewFileRenderer creates a renderer that reports progress every step rows
func NewFileRenderer(step int) *FileRenderer {
	if step <= 0 {
		step = defaultProgressStep
	}
	return &FileRenderer{progressStep: step}
}

// Render writes result in format. progress, when set, receives the number of
// rows written so far every few hundred rows and once at the end.
func (r *FileRenderer) Render(format report.ExportFormat, result *report.QueryResult, progress func(written int)) ([]byte, error) {
	if progress == nil {
		progress = func(int) {}
	}
	switch format {
	case report.FormatCSV:
		return r.renderCSV(result, progress)
	case report.FormatXLSX:
		return r.renderXLSX(result, progress)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func (r *FileRenderer) renderCSV(result *report.QueryResult, progress func(int)) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(result.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(result.Columns))
	for i, row := range result.Rows {
		for j, col := range result.Columns {
			record[j] = FormatValue(row[col])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i+1, err)
		}
		if (i+1)%r.progressStep == 0 {
			progress(i + 1)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	progress(len(result.Rows))
	return buf.Bytes(), nil
}

func (r *FileRenderer) renderXLSX(result *report.QueryResult, progress func(int)) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return nil, fmt.Errorf("open stream writer: %w", err)
	}

	header := make([]any, len(result.Columns))
	for i, c := range result.Columns {
		header[i] = excelize.Cell{Value: c}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("write xlsx header: %w", err)
	}
	for i, row := range result.Rows {
		cells := make([]any, len(result.Columns))
		for j, col := range result.Columns {
			cells[j] = cellValue(row[col])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return nil, fmt.Errorf("write xlsx row %d: %w", i+1, err)
		}
		if (i+1)%r.progressStep == 0 {
			progress(i + 1)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush xlsx: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	progress(len(result.Rows))
	return buf.Bytes(), nil
}

// cellValue keeps numbers numeric in the workbook
func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int, int32, int64, float32, float64, bool:
		return x
	case decimal.Decimal:
		f, _ := x.Float64()
		return f
	default:
		return FormatValue(v)
	}
}

// FormatValue renders a result value as text
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.UTC().Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case decimal.Decimal:
		return x.String()
	case uuid.UUID:
		return x.String()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
