package report

import (
	"context"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// ExportFormat of a generated file
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// IsValid reports whether f is a supported export format
func (f ExportFormat) IsValid() bool {
	return f == FormatCSV || f == FormatXLSX
}

// Extension returns the file extension including the dot
func (f ExportFormat) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type of the format
func (f ExportFormat) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// ExportStatus of an export job
type ExportStatus string

const (
	ExportPending    ExportStatus = "pending"
	ExportProcessing ExportStatus = "processing"
	ExportCompleted  ExportStatus = "completed"
	ExportFailed     ExportStatus = "failed"
)

// IsFinal reports whether the job will not change any more
func (s ExportStatus) IsFinal() bool {
	return s == ExportCompleted || s == ExportFailed
}

// ExportJob renders a query result to a downloadable file
type ExportJob struct {
	shared.TenantEntity
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status          ExportStatus    `gorm:"type:varchar(20);not null;default:'pending';index"`
	Format          ExportFormat    `gorm:"type:varchar(10);not null"`
	QueryDefinition QueryDefinition `gorm:"serializer:json;type:jsonb;not null"`
	TemplateID      *uuid.UUID      `gorm:"type:uuid"`
	FilePath        *string         `gorm:"type:varchar(1000)"`
	FileSize        *int64
	ErrorMessage    *string `gorm:"type:text"`
	TotalRows       *int
	ProcessedRows   *int
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// TableName returns the table name for GORM
func (ExportJob) TableName() string {
	return "export_jobs"
}

// NewExportJob creates a pending export
func NewExportJob(tenantID, userID uuid.UUID, format ExportFormat, def QueryDefinition, templateID *uuid.UUID) (*ExportJob, error) {
	if !format.IsValid() {
		return nil, shared.Errorf(shared.CodeInvalidInput, "unsupported export format %q", format)
	}
	def, err := def.Normalize()
	if err != nil {
		return nil, err
	}
	return &ExportJob{
		TenantEntity:    shared.NewTenantEntity(tenantID, userID),
		UserID:          userID,
		Status:          ExportPending,
		Format:          format,
		QueryDefinition: def,
		TemplateID:      templateID,
	}, nil
}

// Begin marks the job processing with the number of rows to write
func (j *ExportJob) Begin(total int, at time.Time) {
	zero := 0
	j.Status = ExportProcessing
	j.TotalRows = &total
	j.ProcessedRows = &zero
	j.StartedAt = &at
	j.Touch()
}

// Progress records the number of rows written so far
func (j *ExportJob) Progress(processed int) {
	j.ProcessedRows = &processed
	j.Touch()
}

// Complete records the uploaded file
func (j *ExportJob) Complete(path string, size int64, at time.Time) {
	j.Status = ExportCompleted
	j.FilePath = &path
	j.FileSize = &size
	j.CompletedAt = &at
	if j.TotalRows != nil {
		total := *j.TotalRows
		j.ProcessedRows = &total
	}
	j.Touch()
}

// Fail records an error
func (j *ExportJob) Fail(msg string, at time.Time) {
	j.Status = ExportFailed
	j.ErrorMessage = &msg
	j.CompletedAt = &at
	j.Touch()
}

// ExportRepository persists export jobs
type ExportRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ExportJob, error)
	FindForUser(ctx context.Context, tenantID, userID, id uuid.UUID) (*ExportJob, error)
	Save(ctx context.Context, job *ExportJob) error
}
