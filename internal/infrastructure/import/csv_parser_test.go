package fileimport

import (
	"strings"
	"testing"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/imports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestNewCSVParser(t *testing.T) {
	t.Run("UTF-8 BOM is stripped", func(t *testing.T) {
		p, err := NewCSVParser(strings.NewReader("\xEF\xBB\xBFfirst_name,last_name\nAda,Obi"))
		require.NoError(t, err)
		require.NoError(t, p.ParseHeader())
		assert.Equal(t, []string{"first_name", "last_name"}, p.Headers())
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader("  \n"))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("semicolon delimiter is sniffed", func(t *testing.T) {
		p, err := NewCSVParser(strings.NewReader("name;amount\nAda;1,50"))
		require.NoError(t, err)
		require.NoError(t, p.ParseHeader())
		rows, err := p.ReadAllRows()
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "1,50", rows[0].Get("amount"))
	})

	t.Run("windows-1252 content is decoded", func(t *testing.T) {
		p, err := NewCSVParser(strings.NewReader("name\nSe\xe1n"))
		require.NoError(t, err)
		require.NoError(t, p.ParseHeader())
		rows, err := p.ReadAllRows()
		require.NoError(t, err)
		assert.Equal(t, "Seán", rows[0].Get("name"))
	})
}

func TestCSVParser_Rows(t *testing.T) {
	data := "first_name,last_name,email,email\nAda,Obi,a@x.ie\n,,,\n  Bola , Ade ,b@x.ie,c@x.ie\n"
	table, err := Parse(imports.FormatCSV, []byte(data), 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"first_name", "last_name", "email", "email_2"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 2, table.Rows[0].Number)
	assert.Equal(t, "", table.Rows[0].Get("email_2"))
	assert.Equal(t, 4, table.Rows[1].Number)
	assert.Equal(t, "Bola", table.Rows[1].Get("first_name"))
	assert.Equal(t, "Ade", table.Rows[1].Get("last_name"))

	mapped := table.Rows[1].Mapped(map[string]string{"first_name": "first_name", "email_2": "email", "last_name": ""})
	assert.Equal(t, map[string]string{"first_name": "Bola", "email": "c@x.ie"}, mapped)
}

func TestParse_Limits(t *testing.T) {
	_, err := Parse(imports.FormatCSV, []byte("a,b\n"), 0)
	assert.ErrorIs(t, err, ErrNoDataRows)

	_, err = Parse(imports.FormatCSV, []byte("a\n1\n2\n3\n"), 2)
	assert.ErrorIs(t, err, ErrTooManyRows)

	_, err = Parse("ods", []byte("a"), 0)
	assert.Error(t, err)
}

func workbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	data := workbook(t,
		[]any{},
		[]any{"Name", "Service Date", "Men"},
		[]any{"Sunday Service", "2024-05-05", 40},
		[]any{nil, nil, nil},
		[]any{"Midweek", "2024-05-08", 12},
	)

	table, err := Parse(imports.FormatXLSX, data, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Service Date", "Men"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 3, table.Rows[0].Number)
	assert.Equal(t, "Sunday Service", table.Rows[0].Get("Name"))
	assert.Equal(t, "40", table.Rows[0].Get("Men"))
	assert.Equal(t, 5, table.Rows[1].Number)

	_, err = ParseXLSX(data, 1)
	assert.ErrorIs(t, err, ErrTooManyRows)

	_, err = ParseXLSX(workbook(t, []any{"only", "headers"}), 0)
	assert.ErrorIs(t, err, ErrNoDataRows)

	_, err = ParseXLSX([]byte("not a zip"), 0)
	assert.Error(t, err)
}
