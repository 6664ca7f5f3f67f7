package registry

import (
	"strings"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// Service is a meeting event (Sunday, Midweek, Special or a custom name)
type Service struct {
	shared.TenantEntity
	OrgUnitID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_services_unit_name_date"`
	Name        string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_services_unit_name_date"`
	ServiceDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_services_unit_name_date;index"`
	ServiceTime *string   `gorm:"type:varchar(8)"`
}

// TableName returns the table name for GORM
func (Service) TableName() string {
	return "services"
}

// NewService creates a service event
func NewService(tenantID, createdBy, orgUnitID uuid.UUID, name string, date time.Time, serviceTime *string) (*Service, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "service name is required")
	}
	if len(name) > 50 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "service name cannot exceed 50 characters")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "service date is required")
	}
	if serviceTime != nil {
		if _, err := time.Parse("15:04", *serviceTime); err != nil {
			if _, err := time.Parse("15:04:05", *serviceTime); err != nil {
				return nil, shared.Errorf(shared.CodeInvalidInput, "invalid service time %q", *serviceTime)
			}
		}
	}
	return &Service{
		TenantEntity: shared.NewTenantEntity(tenantID, createdBy),
		OrgUnitID:    orgUnitID,
		Name:         name,
		ServiceDate:  date,
		ServiceTime:  serviceTime,
	}, nil
}

// Attendance holds the head counts of one service
type Attendance struct {
	shared.TenantEntity
	ServiceID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	MenCount         int       `gorm:"not null;default:0"`
	WomenCount       int       `gorm:"not null;default:0"`
	TeensCount       int       `gorm:"not null;default:0"`
	KidsCount        int       `gorm:"not null;default:0"`
	FirstTimersCount int       `gorm:"not null;default:0"`
	NewConvertsCount int       `gorm:"not null;default:0"`
	TotalAttendance  int       `gorm:"not null;default:0"`
	Notes            *string   `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Attendance) TableName() string {
	return "attendance"
}

// AttendanceCounts are the counts captured for a service
type AttendanceCounts struct {
	Men         int
	Women       int
	Teens       int
	Kids        int
	FirstTimers int
	NewConverts int
}

// NewAttendance creates the attendance record of a service
func NewAttendance(tenantID, createdBy, serviceID uuid.UUID, counts AttendanceCounts, notes *string) (*Attendance, error) {
	a := &Attendance{
		TenantEntity: shared.NewTenantEntity(tenantID, createdBy),
		ServiceID:    serviceID,
		Notes:        notes,
	}
	if err := a.SetCounts(counts); err != nil {
		return nil, err
	}
	return a, nil
}

// SetCounts replaces the counts and recomputes the total
func (a *Attendance) SetCounts(c AttendanceCounts) error {
	for _, n := range []int{c.Men, c.Women, c.Teens, c.Kids, c.FirstTimers, c.NewConverts} {
		if n < 0 {
			return shared.NewDomainError(shared.CodeInvalidInput, "attendance counts cannot be negative")
		}
	}
	a.MenCount = c.Men
	a.WomenCount = c.Women
	a.TeensCount = c.Teens
	a.KidsCount = c.Kids
	a.FirstTimersCount = c.FirstTimers
	a.NewConvertsCount = c.NewConverts
	a.TotalAttendance = c.Men + c.Women + c.Teens + c.Kids
	a.Touch()
	return nil
}

// Counts returns the current counts
func (a *Attendance) Counts() AttendanceCounts {
	return AttendanceCounts{
		Men:         a.MenCount,
		Women:       a.WomenCount,
		Teens:       a.TeensCount,
		Kids:        a.KidsCount,
		FirstTimers: a.FirstTimersCount,
		NewConverts: a.NewConvertsCount,
	}
}
