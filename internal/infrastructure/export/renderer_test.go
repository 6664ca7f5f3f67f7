package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/report"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleResult() *report.QueryResult {
	return &report.QueryResult{
		Columns: []string{"fund", "total", "day"},
		Rows: []map[string]any{
			{"fund": "Tithe", "total": 1250.5, "day": time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
			{"fund": "Offering", "total": decimal.RequireFromString("99.90"), "day": nil},
			{"fund": "Seed", "total": int64(7), "day": "2024-02-03"},
		},
	}
}

func TestFileRenderer_CSV(t *testing.T) {
	var calls []int
	data, err := NewFileRenderer(2).Render(report.FormatCSV, sampleResult(), func(n int) {
		calls = append(calls, n)
	})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"fund", "total", "day"},
		{"Tithe", "1250.5", "2024-02-01"},
		{"Offering", "99.9", ""},
		{"Seed", "7", "2024-02-03"},
	}, records)
	assert.Equal(t, []int{2, 3}, calls)
}

func TestFileRenderer_XLSX(t *testing.T) {
	data, err := NewFileRenderer(0).Render(report.FormatXLSX, sampleResult(), nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"fund", "total", "day"}, rows[0])
	assert.Equal(t, "Tithe", rows[1][0])
	assert.Equal(t, "1250.5", rows[1][1])
	assert.Equal(t, "Seed", rows[3][0])
}

func TestFileRenderer_UnknownFormat(t *testing.T) {
	_, err := NewFileRenderer(0).Render("pdf", sampleResult(), nil)
	assert.Error(t, err)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{[]byte("abc"), "abc"},
		{true, "true"},
		{time.Date(2024, 5, 6, 10, 30, 0, 0, time.UTC), "2024-05-06T10:30:00Z"},
		{float64(3), "3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}
