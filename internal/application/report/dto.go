package report

import (
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/report"
	"github.com/google/uuid"
)

// ExportInput requests an export of a query or a saved template
type ExportInput struct {
	Definition *report.QueryDefinition
	TemplateID *uuid.UUID
	Format     string
}

// ExportDTO represents an export job
type ExportDTO struct {
	ID            uuid.UUID              `json:"id"`
	Status        string                 `json:"status"`
	Format        string                 `json:"format"`
	Query         report.QueryDefinition `json:"query_definition"`
	TemplateID    *uuid.UUID             `json:"template_id,omitempty"`
	TotalRows     *int                   `json:"total_rows,omitempty"`
	ProcessedRows *int                   `json:"processed_rows,omitempty"`
	Progress      int                    `json:"progress"`
	FileSize      *int64                 `json:"file_size,omitempty"`
	FileURL       string                 `json:"file_url,omitempty"`
	URLExpiresAt  *time.Time             `json:"url_expires_at,omitempty"`
	ErrorMessage  *string                `json:"error_message,omitempty"`
	StartedAt     *time.Time             `json:"started_at,omitempty"`
	CompletedAt   *time.Time             `json:"completed_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// ToExportDTO converts a domain export job. The download URL is filled in by the service.
func ToExportDTO(j *report.ExportJob) ExportDTO {
	dto := ExportDTO{
		ID:            j.ID,
		Status:        string(j.Status),
		Format:        string(j.Format),
		Query:         j.QueryDefinition,
		TemplateID:    j.TemplateID,
		TotalRows:     j.TotalRows,
		ProcessedRows: j.ProcessedRows,
		FileSize:      j.FileSize,
		ErrorMessage:  j.ErrorMessage,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
		CreatedAt:     j.CreatedAt,
	}
	switch {
	case j.Status == report.ExportCompleted:
		dto.Progress = 100
	case j.TotalRows != nil && *j.TotalRows > 0 && j.ProcessedRows != nil:
		dto.Progress = *j.ProcessedRows * 100 / *j.TotalRows
	}
	return dto
}

// TemplateInput carries the content of a template
type TemplateInput struct {
	Name                string
	Description         *string
	QueryDefinition     report.QueryDefinition
	VisualizationConfig map[string]any
	IsShared            bool
	SharedWithOrgUnits  []uuid.UUID
}

// TemplateDTO represents a saved report template
type TemplateDTO struct {
	ID                  uuid.UUID              `json:"id"`
	UserID              uuid.UUID              `json:"user_id"`
	Name                string                 `json:"name"`
	Description         *string                `json:"description,omitempty"`
	QueryDefinition     report.QueryDefinition `json:"query_definition"`
	VisualizationConfig map[string]any         `json:"visualization_config,omitempty"`
	IsShared            bool                   `json:"is_shared"`
	SharedWithOrgUnits  []uuid.UUID            `json:"shared_with_org_units,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// ToTemplateDTO converts a domain template
func ToTemplateDTO(t *report.Template) TemplateDTO {
	return TemplateDTO{
		ID:                  t.ID,
		UserID:              t.UserID,
		Name:                t.Name,
		Description:         t.Description,
		QueryDefinition:     t.QueryDefinition,
		VisualizationConfig: t.VisualizationConfig,
		IsShared:            t.IsShared,
		SharedWithOrgUnits:  t.SharedWithOrgUnits,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

// ScheduleDTO represents a report schedule
type ScheduleDTO struct {
	ID             uuid.UUID      `json:"id"`
	TemplateID     uuid.UUID      `json:"template_id"`
	Frequency      string         `json:"frequency"`
	DayOfWeek      *int           `json:"day_of_week,omitempty"`
	DayOfMonth     *int           `json:"day_of_month,omitempty"`
	TimeOfDay      string         `json:"time_of_day"`
	Recipients     []string       `json:"recipients"`
	Format         string         `json:"format"`
	QueryOverrides map[string]any `json:"query_overrides,omitempty"`
	IsActive       bool           `json:"is_active"`
	LastRunAt      *time.Time     `json:"last_run_at,omitempty"`
	NextRunAt      time.Time      `json:"next_run_at"`
	LastError      *string        `json:"last_error,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ToScheduleDTO converts a domain schedule
func ToScheduleDTO(s *report.Schedule) ScheduleDTO {
	return ScheduleDTO{
		ID:             s.ID,
		TemplateID:     s.TemplateID,
		Frequency:      string(s.Frequency),
		DayOfWeek:      s.DayOfWeek,
		DayOfMonth:     s.DayOfMonth,
		TimeOfDay:      s.TimeOfDay,
		Recipients:     s.Recipients,
		Format:         string(s.Format),
		QueryOverrides: s.QueryOverrides,
		IsActive:       s.IsActive,
		LastRunAt:      s.LastRunAt,
		NextRunAt:      s.NextRunAt,
		LastError:      s.LastError,
		CreatedAt:      s.CreatedAt,
	}
}

// DashboardInput narrows a dashboard to a period and an org unit subtree
type DashboardInput struct {
	From      *time.Time
	To        *time.Time
	OrgUnitID *uuid.UUID
}

// DashboardDTO holds the named sections of a dashboard
type DashboardDTO struct {
	Type     string                         `json:"type"`
	From     *time.Time                     `json:"from,omitempty"`
	To       *time.Time                     `json:"to,omitempty"`
	Sections map[string]*report.QueryResult `json:"sections"`
}
