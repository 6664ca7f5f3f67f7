package imports

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// EntityType is the kind of record an import creates
type EntityType string

const (
	EntityPeople         EntityType = "people"
	EntityMemberships    EntityType = "memberships"
	EntityFirstTimers    EntityType = "first_timers"
	EntityServices       EntityType = "services"
	EntityAttendance     EntityType = "attendance"
	EntityCells          EntityType = "cells"
	EntityCellReports    EntityType = "cell_reports"
	EntityFinanceEntries EntityType = "finance_entries"
)

// EntityTypes lists every importable entity type
func EntityTypes() []EntityType {
	return []EntityType{
		EntityPeople, EntityMemberships, EntityFirstTimers, EntityServices,
		EntityAttendance, EntityCells, EntityCellReports, EntityFinanceEntries,
	}
}

// IsValid reports whether e is importable
func (e EntityType) IsValid() bool {
	for _, t := range EntityTypes() {
		if t == e {
			return true
		}
	}
	return false
}

// FileFormat of an uploaded file
type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatXLSX FileFormat = "xlsx"
)

// DetectFormat picks the format from the file extension, falling back to the
// leading bytes (XLSX files are zip archives starting with "PK")
func DetectFormat(fileName string, head []byte) (FileFormat, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls":
		return "", shared.NewDomainError(shared.CodeInvalidInput, "legacy .xls files are not supported, save as .xlsx")
	}
	if len(head) >= 2 && head[0] == 'P' && head[1] == 'K' {
		return FormatXLSX, nil
	}
	if len(head) > 0 && isText(head) {
		return FormatCSV, nil
	}
	return "", shared.Errorf(shared.CodeInvalidInput, "unsupported file format for %q", fileName)
}

func isText(b []byte) bool {
	for _, c := range b {
		if c == 0 {
			return false
		}
	}
	return true
}

// Status of an import job
type Status string

const (
	StatusPending    Status = "pending"
	StatusPreviewed  Status = "previewed"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Mode controls how existing records are treated
type Mode string

const (
	ModeCreateOnly     Mode = "create_only"
	ModeUpdateExisting Mode = "update_existing"
)

// Job is an uploaded file moving through preview, mapping and processing
type Job struct {
	shared.TenantEntity
	UserID           uuid.UUID         `gorm:"type:uuid;not null;index"`
	EntityType       EntityType        `gorm:"type:varchar(50);not null"`
	FileName         string            `gorm:"type:varchar(500);not null"`
	FileFormat       FileFormat        `gorm:"type:varchar(10);not null"`
	FilePath         string            `gorm:"type:varchar(1000);not null"`
	FileSize         int64             `gorm:"not null"`
	Status           Status            `gorm:"type:varchar(20);not null;default:'pending';index"`
	MappingConfig    map[string]string `gorm:"serializer:json;type:jsonb"`
	ImportMode       Mode              `gorm:"type:varchar(20);not null;default:'create_only'"`
	DefaultOrgUnitID *uuid.UUID        `gorm:"type:uuid"`
	DryRun           bool              `gorm:"not null;default:false"`
	TotalRows        int               `gorm:"not null;default:0"`
	ProcessedRows    int               `gorm:"not null;default:0"`
	ImportedCount    int               `gorm:"not null;default:0"`
	ErrorCount       int               `gorm:"not null;default:0"`
	SkippedCount     int               `gorm:"not null;default:0"`
	ErrorFilePath    *string           `gorm:"type:varchar(1000)"`
	FailureReason    *string           `gorm:"type:text"`
	StartedAt        *time.Time
	CompletedAt      *time.Time
}

// TableName returns the table name for GORM
func (Job) TableName() string {
	return "import_jobs"
}

// NewJob creates a pending job for an uploaded file
func NewJob(tenantID, userID uuid.UUID, entity EntityType, fileName string, format FileFormat, path string, size int64, mode Mode, defaultOrgUnit *uuid.UUID, dryRun bool) (*Job, error) {
	if !entity.IsValid() {
		return nil, shared.Errorf(shared.CodeInvalidInput, "unsupported entity type %q", entity)
	}
	if mode == "" {
		mode = ModeCreateOnly
	}
	if mode != ModeCreateOnly && mode != ModeUpdateExisting {
		return nil, shared.Errorf(shared.CodeInvalidInput, "invalid import mode %q", mode)
	}
	return &Job{
		TenantEntity:     shared.NewTenantEntity(tenantID, userID),
		UserID:           userID,
		EntityType:       entity,
		FileName:         fileName,
		FileFormat:       format,
		FilePath:         path,
		FileSize:         size,
		Status:           StatusPending,
		ImportMode:       mode,
		DefaultOrgUnitID: defaultOrgUnit,
		DryRun:           dryRun,
	}, nil
}

// SetMapping replaces the column mapping. Only allowed before processing starts.
func (j *Job) SetMapping(mapping map[string]string) error {
	if j.Status != StatusPending && j.Status != StatusPreviewed {
		return shared.Errorf(shared.CodeInvalidState, "cannot change mapping of a %s import", j.Status)
	}
	j.MappingConfig = mapping
	j.Touch()
	return nil
}

// MarkPreviewed records that headers were read and a mapping suggested
func (j *Job) MarkPreviewed(totalRows int, mapping map[string]string) {
	j.Status = StatusPreviewed
	j.TotalRows = totalRows
	if len(j.MappingConfig) == 0 {
		j.MappingConfig = mapping
	}
	j.Touch()
}

// Start moves the job to processing
func (j *Job) Start(at time.Time) error {
	if j.Status != StatusPending && j.Status != StatusPreviewed {
		return shared.Errorf(shared.CodeInvalidState, "import is already %s", j.Status)
	}
	if len(j.MappingConfig) == 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "column mapping is required before starting the import")
	}
	j.Status = StatusProcessing
	j.StartedAt = &at
	j.ProcessedRows, j.ImportedCount, j.ErrorCount, j.SkippedCount = 0, 0, 0, 0
	j.Touch()
	return nil
}

// RecordRow updates the counters for one processed row
func (j *Job) RecordRow(outcome RowOutcome) {
	j.ProcessedRows++
	switch outcome {
	case RowImported:
		j.ImportedCount++
	case RowFailed:
		j.ErrorCount++
	case RowSkipped:
		j.SkippedCount++
	}
}

// Complete finishes the job
func (j *Job) Complete(at time.Time) {
	j.Status = StatusCompleted
	j.CompletedAt = &at
	j.Touch()
}

// Fail aborts the job with a reason
func (j *Job) Fail(reason string, at time.Time) {
	j.Status = StatusFailed
	j.FailureReason = &reason
	j.CompletedAt = &at
	j.Touch()
}

// RowOutcome is the result of importing one row
type RowOutcome int

const (
	RowImported RowOutcome = iota
	RowFailed
	RowSkipped
)

// ErrorType classifies row errors
type ErrorType string

const (
	ErrorRequired   ErrorType = "required"
	ErrorCoercion   ErrorType = "coercion"
	ErrorReference  ErrorType = "reference"
	ErrorValidation ErrorType = "validation"
	ErrorDuplicate  ErrorType = "duplicate"
)

// RowError is one problem found in a row
type RowError struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	ImportJobID   uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	RowNumber     int       `gorm:"not null" json:"row"`
	ColumnName    *string   `gorm:"type:varchar(200)" json:"column,omitempty"`
	ErrorType     ErrorType `gorm:"type:varchar(20);not null" json:"error_type"`
	ErrorMessage  string    `gorm:"type:text;not null" json:"message"`
	OriginalValue *string   `gorm:"type:text" json:"original_value,omitempty"`
}

// TableName returns the table name for GORM
func (RowError) TableName() string {
	return "import_errors"
}

// NewRowError builds a row error; empty column and value are stored as NULL
func NewRowError(jobID uuid.UUID, row int, column string, errType ErrorType, message, original string) RowError {
	e := RowError{
		ID:           uuid.New(),
		ImportJobID:  jobID,
		RowNumber:    row,
		ErrorType:    errType,
		ErrorMessage: message,
	}
	if column != "" {
		e.ColumnName = &column
	}
	if original != "" {
		e.OriginalValue = &original
	}
	return e
}

// JobRepository persists import jobs and their row errors
type JobRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Job, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Job, error)
	Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
	Save(ctx context.Context, job *Job) error

	AddErrors(ctx context.Context, errs []RowError) error
	FindErrors(ctx context.Context, jobID uuid.UUID, limit int) ([]RowError, error)
	DeleteErrors(ctx context.Context, jobID uuid.UUID) error
}
