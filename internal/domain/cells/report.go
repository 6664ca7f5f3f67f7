package cells

import (
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MeetingType of a cell meeting
type MeetingType string

const (
	MeetingPrayerPlanning MeetingType = "prayer_planning"
	MeetingBibleStudy     MeetingType = "bible_study"
	MeetingOutreach       MeetingType = "outreach"
)

// IsValid reports whether m is a known meeting type
func (m MeetingType) IsValid() bool {
	switch m {
	case MeetingPrayerPlanning, MeetingBibleStudy, MeetingOutreach:
		return true
	}
	return false
}

// ReportStatus is the review state of a cell report
type ReportStatus string

const (
	ReportSubmitted ReportStatus = "submitted"
	ReportReviewed  ReportStatus = "reviewed"
	ReportApproved  ReportStatus = "approved"
)

// CellReport records one cell meeting
type CellReport struct {
	shared.TenantEntity
	CellID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cell_reports_cell_date"`
	ReportDate     time.Time       `gorm:"type:date;not null;uniqueIndex:idx_cell_reports_cell_date;index"`
	ReportTime     *string         `gorm:"type:varchar(8)"`
	Attendance     int             `gorm:"not null;default:0"`
	FirstTimers    int             `gorm:"not null;default:0"`
	NewConverts    int             `gorm:"not null;default:0"`
	Testimonies    *string         `gorm:"type:text"`
	OfferingsTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	MeetingType    MeetingType     `gorm:"type:varchar(30);not null"`
	Status         ReportStatus    `gorm:"type:varchar(20);not null;default:'submitted';index"`
	Notes          *string         `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CellReport) TableName() string {
	return "cell_reports"
}

// ReportDetails are the editable attributes of a report
type ReportDetails struct {
	ReportDate     time.Time
	ReportTime     *string
	Attendance     int
	FirstTimers    int
	NewConverts    int
	Testimonies    *string
	OfferingsTotal decimal.Decimal
	MeetingType    MeetingType
	Notes          *string
}

// NewCellReport creates a submitted report
func NewCellReport(tenantID, createdBy, cellID uuid.UUID, d ReportDetails) (*CellReport, error) {
	r := &CellReport{
		TenantEntity: shared.NewTenantEntity(tenantID, createdBy),
		CellID:       cellID,
		Status:       ReportSubmitted,
	}
	if err := r.Apply(d); err != nil {
		return nil, err
	}
	return r, nil
}

// Apply validates and sets the report attributes
func (r *CellReport) Apply(d ReportDetails) error {
	if d.ReportDate.IsZero() {
		return shared.NewDomainError(shared.CodeInvalidInput, "report date is required")
	}
	if d.Attendance < 0 || d.FirstTimers < 0 || d.NewConverts < 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "counts cannot be negative")
	}
	if d.OfferingsTotal.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "offerings cannot be negative")
	}
	if !d.MeetingType.IsValid() {
		return shared.Errorf(shared.CodeInvalidInput, "invalid meeting type %q", d.MeetingType)
	}
	r.ReportDate = d.ReportDate
	r.ReportTime = d.ReportTime
	r.Attendance = d.Attendance
	r.FirstTimers = d.FirstTimers
	r.NewConverts = d.NewConverts
	r.Testimonies = d.Testimonies
	r.OfferingsTotal = d.OfferingsTotal.Round(2)
	r.MeetingType = d.MeetingType
	r.Notes = d.Notes
	r.Touch()
	return nil
}

// Approve moves the report to reviewed or approved
func (r *CellReport) Approve(status ReportStatus) error {
	if status != ReportReviewed && status != ReportApproved {
		return shared.Errorf(shared.CodeInvalidInput, "status must be reviewed or approved, got %q", status)
	}
	r.Status = status
	r.Touch()
	return nil
}

// HasOfferings reports whether the report carries a positive offering total
func (r *CellReport) HasOfferings() bool {
	return r.OfferingsTotal.IsPositive()
}
