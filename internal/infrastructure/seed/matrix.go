// Package seed reads bootstrap data files such as the permission matrix.
package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
)

var matrixColumns = []string{"role_name", "permission", "default_granted"}

// LoadMatrixFile reads a permission matrix from path
func LoadMatrixFile(path string) ([]appiam.MatrixRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open permission matrix: %w", err)
	}
	defer f.Close()
	return ParseMatrix(f)
}

// ParseMatrix reads CSV rows of role_name,permission,default_granted. Column
// order follows the header. Rows missing a role or permission are skipped.
func ParseMatrix(r io.Reader) ([]appiam.MatrixRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read permission matrix header: %w", err)
	}
	index := map[string]int{}
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, col := range matrixColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("permission matrix is missing column %q", col)
		}
	}

	var rows []appiam.MatrixRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read permission matrix line %d: %w", line, err)
		}
		field := func(col string) string {
			if i := index[col]; i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}
		row := appiam.MatrixRow{
			RoleName:   field("role_name"),
			Permission: field("permission"),
			Granted:    IsGranted(field("default_granted")),
		}
		if row.RoleName == "" || row.Permission == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// IsGranted reports whether a default_granted cell means yes
func IsGranted(value string) bool {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "TRUE", "1", "YES":
		return true
	}
	return false
}
