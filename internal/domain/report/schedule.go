package report

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// Frequency of a scheduled report
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

// Schedule periodically exports a template and mails the result
type Schedule struct {
	shared.TenantEntity
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index"`
	TemplateID     uuid.UUID      `gorm:"type:uuid;not null;index"`
	Frequency      Frequency      `gorm:"type:varchar(20);not null"`
	DayOfWeek      *int           `gorm:"comment:0=Monday"`
	DayOfMonth     *int           `gorm:"comment:1-31"`
	TimeOfDay      string         `gorm:"type:varchar(5);not null"`
	Recipients     []string       `gorm:"serializer:json;type:jsonb;not null"`
	Format         ExportFormat   `gorm:"type:varchar(10);not null;default:'csv'"`
	QueryOverrides map[string]any `gorm:"serializer:json;type:jsonb"`
	IsActive       bool           `gorm:"not null;default:true;index"`
	LastRunAt      *time.Time
	NextRunAt      time.Time `gorm:"not null;index"`
	LastError      *string   `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Schedule) TableName() string {
	return "report_schedules"
}

// ScheduleParams carries the attributes of a new schedule
type ScheduleParams struct {
	TemplateID     uuid.UUID
	Frequency      Frequency
	DayOfWeek      *int
	DayOfMonth     *int
	TimeOfDay      string
	Recipients     []string
	Format         ExportFormat
	QueryOverrides map[string]any
}

// NewSchedule validates p and computes the first run after now
func NewSchedule(tenantID, userID uuid.UUID, p ScheduleParams, now time.Time) (*Schedule, error) {
	if _, err := parseTimeOfDay(p.TimeOfDay); err != nil {
		return nil, err
	}
	switch p.Frequency {
	case FrequencyDaily, FrequencyQuarterly:
	case FrequencyWeekly:
		if p.DayOfWeek == nil || *p.DayOfWeek < 0 || *p.DayOfWeek > 6 {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "weekly schedules need day_of_week between 0 (Monday) and 6")
		}
	case FrequencyMonthly:
		if p.DayOfMonth != nil && (*p.DayOfMonth < 1 || *p.DayOfMonth > 31) {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "day_of_month must be between 1 and 31")
		}
	default:
		return nil, shared.Errorf(shared.CodeInvalidInput, "invalid frequency %q", p.Frequency)
	}
	if len(p.Recipients) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "at least one recipient is required")
	}
	recipients := make([]string, 0, len(p.Recipients))
	for _, r := range p.Recipients {
		r = strings.TrimSpace(r)
		if _, err := mail.ParseAddress(r); err != nil {
			return nil, shared.Errorf(shared.CodeInvalidInput, "invalid recipient %q", r)
		}
		recipients = append(recipients, r)
	}
	format := p.Format
	if format == "" {
		format = FormatCSV
	}
	if !format.IsValid() {
		return nil, shared.Errorf(shared.CodeInvalidInput, "unsupported export format %q", format)
	}
	s := &Schedule{
		TenantEntity:   shared.NewTenantEntity(tenantID, userID),
		UserID:         userID,
		TemplateID:     p.TemplateID,
		Frequency:      p.Frequency,
		DayOfWeek:      p.DayOfWeek,
		DayOfMonth:     p.DayOfMonth,
		TimeOfDay:      p.TimeOfDay,
		Recipients:     recipients,
		Format:         format,
		QueryOverrides: p.QueryOverrides,
		IsActive:       true,
	}
	s.NextRunAt = s.NextRun(now)
	return s, nil
}

// NextRun returns the first run time strictly after now, in UTC
func (s *Schedule) NextRun(now time.Time) time.Time {
	now = now.UTC()
	tod, _ := parseTimeOfDay(s.TimeOfDay)
	at := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(tod)
	}
	y, m, d := now.Date()

	switch s.Frequency {
	case FrequencyWeekly:
		// time.Weekday is 0=Sunday; schedules use 0=Monday
		today := (int(now.Weekday()) + 6) % 7
		ahead := *s.DayOfWeek - today
		candidate := at(y, m, d+ahead)
		if ahead < 0 || !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 7)
		}
		return candidate
	case FrequencyMonthly:
		if s.DayOfMonth == nil {
			return at(y, m, d+1)
		}
		candidate := clampDay(y, m, *s.DayOfMonth, tod)
		if !candidate.After(now) {
			candidate = clampDay(y, m+1, *s.DayOfMonth, tod)
		}
		return candidate
	case FrequencyQuarterly:
		quarterStart := time.Month((int(m)-1)/3*3 + 1)
		return at(y, quarterStart+3, 1)
	default:
		candidate := at(y, m, d)
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate
	}
}

// RecordRun stores the outcome of a run and advances NextRunAt.
// A failed run deactivates the schedule.
func (s *Schedule) RecordRun(at time.Time, runErr error) {
	s.LastRunAt = &at
	if runErr != nil {
		msg := runErr.Error()
		s.LastError = &msg
		s.IsActive = false
	} else {
		s.LastError = nil
	}
	s.NextRunAt = s.NextRun(at)
	s.Touch()
}

// clampDay returns day of month m (normalised across years) at tod, using the
// last day of the month when day does not exist
func clampDay(y int, m time.Month, day int, tod time.Duration) time.Time {
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1).Add(tod)
}

func parseTimeOfDay(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, shared.Errorf(shared.CodeInvalidInput, "invalid time %q, expected HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// ScheduleRepository persists report schedules
type ScheduleRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Schedule, error)
	FindByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]Schedule, error)

	// FindDue lists active schedules whose next run is at or before now, across tenants
	FindDue(ctx context.Context, now time.Time, limit int) ([]Schedule, error)
	Save(ctx context.Context, s *Schedule) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
