package seed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMatrix(t *testing.T) {
	input := "\ufeffpermission,role_name,default_granted\n" +
		"finance.verify, Zonal Pastor ,TRUE\n" +
		"finance.batches.lock,Zonal Pastor,no\n" +
		"cells.manage,Cell Leader, yes \n" +
		",Cell Leader,TRUE\n" +
		"cells.reports.create,Cell Leader\n"

	rows, err := ParseMatrix(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []appiam.MatrixRow{
		{RoleName: "Zonal Pastor", Permission: "finance.verify", Granted: true},
		{RoleName: "Zonal Pastor", Permission: "finance.batches.lock", Granted: false},
		{RoleName: "Cell Leader", Permission: "cells.manage", Granted: true},
		{RoleName: "Cell Leader", Permission: "cells.reports.create", Granted: false},
	}, rows)
}

func TestParseMatrix_MissingColumn(t *testing.T) {
	_, err := ParseMatrix(strings.NewReader("role_name,permission\nA,b.c\n"))
	assert.ErrorContains(t, err, "default_granted")
}

func TestIsGranted(t *testing.T) {
	for _, v := range []string{"TRUE", "true", " 1 ", "Yes", "YES"} {
		assert.True(t, IsGranted(v), v)
	}
	for _, v := range []string{"", "FALSE", "0", "no", "y", "granted"} {
		assert.False(t, IsGranted(v), v)
	}
}

func TestLoadMatrixFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.csv")
	require.NoError(t, os.WriteFile(path, []byte("role_name,permission,default_granted\nAdmin,system.users.create,1\n"), 0o600))

	rows, err := LoadMatrixFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Granted)

	_, err = LoadMatrixFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestBundledMatrixParses(t *testing.T) {
	rows, err := LoadMatrixFile(filepath.Join("..", "..", "..", "resources", "permissions_matrix.csv"))
	require.NoError(t, err)
	assert.NotEmpty(t, rows)
}
