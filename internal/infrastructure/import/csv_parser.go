package fileimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// CSVParser reads delimited text with BOM stripping and encoding detection
type CSVParser struct {
	delimiter  rune
	lazyQuotes bool
	maxRows    int
	headers    []string
	currentRow int
	reader     *csv.Reader
}

// ParserOption configures a CSVParser
type ParserOption func(*CSVParser)

// WithDelimiter sets the field delimiter. Without it the delimiter is sniffed
// from the header line.
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
	}
}

// WithLazyQuotes toggles lenient quote handling
func WithLazyQuotes(lazy bool) ParserOption {
	return func(p *CSVParser) {
		p.lazyQuotes = lazy
	}
}

// WithMaxRows limits the number of data rows; zero means unlimited
func WithMaxRows(n int) ParserOption {
	return func(p *CSVParser) {
		p.maxRows = n
	}
}

// NewCSVParser creates a parser. Content that is not valid UTF-8 is decoded
// as Windows-1252, the usual encoding of spreadsheets saved as CSV on Windows.
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	p := &CSVParser{lazyQuotes: true}
	for _, opt := range opts {
		opt(p)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyFile
	}

	if !utf8.Valid(raw) {
		decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode file: %w", err)
		}
		raw = decoded
	}

	if p.delimiter == 0 {
		p.delimiter = sniffDelimiter(raw)
	}

	p.reader = csv.NewReader(bufio.NewReader(bytes.NewReader(raw)))
	p.reader.Comma = p.delimiter
	p.reader.LazyQuotes = p.lazyQuotes
	p.reader.TrimLeadingSpace = true
	p.reader.FieldsPerRecord = -1
	return p, nil
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab on the first line
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// ParseHeader reads the header row
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	p.headers = uniqueHeaders(record)
	if len(p.headers) == 0 {
		return ErrMissingHeader
	}
	p.currentRow = 1
	return nil
}

// Headers returns the parsed header names
func (p *CSVParser) Headers() []string {
	return p.headers
}

// ReadRow reads the next row. Row numbers count the header as row 1.
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", p.currentRow, err)
	}
	return newRow(p.currentRow, p.headers, record), nil
}

// ReadAllRows reads the remaining rows, skipping blank ones
func (p *CSVParser) ReadAllRows() ([]Row, error) {
	var rows []Row
	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if row.IsEmpty() {
			continue
		}
		if p.maxRows > 0 && len(rows) >= p.maxRows {
			return rows, ErrTooManyRows
		}
		rows = append(rows, *row)
	}
}

// uniqueHeaders trims header names, names blank columns and suffixes duplicates
func uniqueHeaders(record []string) []string {
	headers := make([]string, len(record))
	seen := make(map[string]int, len(record))
	for i, h := range record {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = fmt.Sprintf("%s_%d", h, n)
		}
		headers[i] = h
	}
	return headers
}
