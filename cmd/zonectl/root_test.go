package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{
		{"worker"},
		{"seed-permissions"},
		{"outbox", "flush"},
		{"schedules", "run-due"},
	} {
		cmd, rest, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Empty(t, rest)
		assert.Equal(t, path[len(path)-1], cmd.Name())
		assert.NotNil(t, cmd.RunE, path)
	}
}

func TestSeedPermissionsCmd_Flags(t *testing.T) {
	cmd := newSeedPermissionsCmd()

	csv := cmd.Flags().Lookup("csv")
	require.NotNil(t, csv)
	assert.Equal(t, "resources/permissions_matrix.csv", csv.DefValue)
	assert.NotNil(t, cmd.Flags().Lookup("tenant"))
}

func TestSeedPermissionsCmd_MissingFile(t *testing.T) {
	cmd := newSeedPermissionsCmd()
	cmd.SetArgs([]string{"--csv", t.TempDir() + "/missing.csv"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	assert.Error(t, cmd.Execute())
}
