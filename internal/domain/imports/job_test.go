package imports

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		head    []byte
		want    FileFormat
		wantErr bool
	}{
		{"csv extension", "people.CSV", nil, FormatCSV, false},
		{"xlsx extension", "people.xlsx", nil, FormatXLSX, false},
		{"legacy xls", "people.xls", nil, "", true},
		{"zip magic", "upload", []byte("PK\x03\x04"), FormatXLSX, false},
		{"plain text", "upload", []byte("first_name,last_name\n"), FormatCSV, false},
		{"binary", "upload", []byte{0x00, 0x01}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.file, tt.head)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJobLifecycle(t *testing.T) {
	job, err := NewJob(uuid.New(), uuid.New(), EntityPeople, "p.csv", FormatCSV, "imports/p.csv", 10, "", nil, false)
	require.NoError(t, err)
	assert.Equal(t, ModeCreateOnly, job.ImportMode)

	assert.Error(t, job.Start(time.Now()), "mapping required")

	job.MarkPreviewed(3, map[string]string{"First Name": "first_name"})
	assert.Equal(t, StatusPreviewed, job.Status)
	require.NoError(t, job.Start(time.Now()))

	job.RecordRow(RowImported)
	job.RecordRow(RowFailed)
	job.RecordRow(RowSkipped)
	assert.Equal(t, 3, job.ProcessedRows)
	assert.Equal(t, 1, job.ImportedCount)
	assert.Equal(t, 1, job.ErrorCount)
	assert.Equal(t, 1, job.SkippedCount)

	assert.Error(t, job.SetMapping(map[string]string{}))
	job.Complete(time.Now())
	assert.Equal(t, StatusCompleted, job.Status)

	_, err = NewJob(uuid.New(), uuid.New(), "invoices", "x.csv", FormatCSV, "k", 1, "", nil, false)
	assert.Error(t, err)
}
