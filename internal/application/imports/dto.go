package importapp

import (
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/imports"
	fileimport "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/import"
	"github.com/google/uuid"
)

// JobDTO represents an import job and its progress
type JobDTO struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"user_id"`
	EntityType       string            `json:"entity_type"`
	FileName         string            `json:"file_name"`
	FileFormat       string            `json:"file_format"`
	FileSize         int64             `json:"file_size"`
	Status           string            `json:"status"`
	Mapping          map[string]string `json:"mapping,omitempty"`
	ImportMode       string            `json:"import_mode"`
	DefaultOrgUnitID *uuid.UUID        `json:"default_org_unit_id,omitempty"`
	DryRun           bool              `json:"dry_run"`
	TotalRows        int               `json:"total_rows"`
	ProcessedRows    int               `json:"processed_rows"`
	ImportedCount    int               `json:"imported_count"`
	ErrorCount       int               `json:"error_count"`
	SkippedCount     int               `json:"skipped_count"`
	Progress         int               `json:"progress"`
	HasErrorReport   bool              `json:"has_error_report"`
	FailureReason    *string           `json:"failure_reason,omitempty"`
	StartedAt        *time.Time        `json:"started_at,omitempty"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ToJobDTO converts a domain job
func ToJobDTO(j *imports.Job) JobDTO {
	dto := JobDTO{
		ID:               j.ID,
		UserID:           j.UserID,
		EntityType:       string(j.EntityType),
		FileName:         j.FileName,
		FileFormat:       string(j.FileFormat),
		FileSize:         j.FileSize,
		Status:           string(j.Status),
		Mapping:          j.MappingConfig,
		ImportMode:       string(j.ImportMode),
		DefaultOrgUnitID: j.DefaultOrgUnitID,
		DryRun:           j.DryRun,
		TotalRows:        j.TotalRows,
		ProcessedRows:    j.ProcessedRows,
		ImportedCount:    j.ImportedCount,
		ErrorCount:       j.ErrorCount,
		SkippedCount:     j.SkippedCount,
		HasErrorReport:   j.ErrorFilePath != nil,
		FailureReason:    j.FailureReason,
		StartedAt:        j.StartedAt,
		CompletedAt:      j.CompletedAt,
		CreatedAt:        j.CreatedAt,
		UpdatedAt:        j.UpdatedAt,
	}
	switch {
	case j.Status == imports.StatusCompleted:
		dto.Progress = 100
	case j.TotalRows > 0:
		dto.Progress = j.ProcessedRows * 100 / j.TotalRows
	}
	return dto
}

// UploadInput describes an uploaded import file
type UploadInput struct {
	FileName         string
	Data             []byte
	EntityType       string
	Mode             string
	DefaultOrgUnitID *uuid.UUID
	DryRun           bool
}

// FieldDTO describes one target field
type FieldDTO struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Enum     []string `json:"enum,omitempty"`
}

func toFieldDTOs(schema fileimport.Schema) []FieldDTO {
	fields := make([]FieldDTO, len(schema))
	for i, r := range schema {
		fields[i] = FieldDTO{Name: r.Name, Type: string(r.Type), Required: r.Required, Enum: r.Enum}
	}
	return fields
}

// PreviewDTO shows the first rows of a file with a suggested mapping
type PreviewDTO struct {
	Job         JobDTO                  `json:"job"`
	Headers     []string                `json:"headers"`
	Rows        []map[string]string     `json:"rows"`
	Mapping     map[string]string       `json:"suggested_mapping"`
	Suggestions []fileimport.Suggestion `json:"suggestions"`
	Fields      []FieldDTO              `json:"fields"`
}

// RowErrorDTO is one problem found in a row
type RowErrorDTO struct {
	Row           int     `json:"row"`
	Column        *string `json:"column,omitempty"`
	ErrorType     string  `json:"error_type"`
	Message       string  `json:"message"`
	OriginalValue *string `json:"original_value,omitempty"`
}

func toRowErrorDTOs(errs []imports.RowError) []RowErrorDTO {
	out := make([]RowErrorDTO, len(errs))
	for i, e := range errs {
		out[i] = RowErrorDTO{
			Row:           e.RowNumber,
			Column:        e.ColumnName,
			ErrorType:     string(e.ErrorType),
			Message:       e.ErrorMessage,
			OriginalValue: e.OriginalValue,
		}
	}
	return out
}

// ValidationDTO summarises a dry run over every row
type ValidationDTO struct {
	TotalRows    int            `json:"total_rows"`
	ValidRows    int            `json:"valid_rows"`
	InvalidRows  int            `json:"invalid_rows"`
	ErrorCount   int            `json:"error_count"`
	ErrorsByType map[string]int `json:"errors_by_type"`
	Errors       []RowErrorDTO  `json:"errors"`
	IsTruncated  bool           `json:"is_truncated,omitempty"`
}

// ErrorReportDTO points at the downloadable CSV of row errors
type ErrorReportDTO struct {
	FileName    string    `json:"file_name"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
	ErrorCount  int       `json:"error_count"`
}

// JobListFilter narrows import job listings
type JobListFilter struct {
	Status     string
	EntityType string
	Page       int
	PageSize   int
}
