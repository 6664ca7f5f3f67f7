package cells

import (
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/cells"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CellDTO represents a cell
type CellDTO struct {
	ID                uuid.UUID  `json:"id"`
	OrgUnitID         uuid.UUID  `json:"org_unit_id"`
	Name              string     `json:"name"`
	LeaderID          *uuid.UUID `json:"leader_id,omitempty"`
	AssistantLeaderID *uuid.UUID `json:"assistant_leader_id,omitempty"`
	Venue             *string    `json:"venue,omitempty"`
	MeetingDay        *string    `json:"meeting_day,omitempty"`
	MeetingTime       *string    `json:"meeting_time,omitempty"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ToCellDTO converts a domain cell
func ToCellDTO(c *cells.Cell) CellDTO {
	return CellDTO{
		ID:                c.ID,
		OrgUnitID:         c.OrgUnitID,
		Name:              c.Name,
		LeaderID:          c.LeaderID,
		AssistantLeaderID: c.AssistantLeaderID,
		Venue:             c.Venue,
		MeetingDay:        c.MeetingDay,
		MeetingTime:       c.MeetingTime,
		Status:            c.Status,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

// CellInput carries the attributes of a cell on create and update
type CellInput struct {
	OrgUnitID         uuid.UUID
	Name              string
	LeaderID          *uuid.UUID
	AssistantLeaderID *uuid.UUID
	Venue             *string
	MeetingDay        *string
	MeetingTime       *string
	Status            string
}

func (in CellInput) details() cells.CellDetails {
	return cells.CellDetails{
		Name:              in.Name,
		LeaderID:          in.LeaderID,
		AssistantLeaderID: in.AssistantLeaderID,
		Venue:             in.Venue,
		MeetingDay:        in.MeetingDay,
		MeetingTime:       in.MeetingTime,
		Status:            in.Status,
	}
}

// CellListFilter narrows cell listings
type CellListFilter struct {
	OrgUnitID *uuid.UUID
	LeaderID  *uuid.UUID
	Status    string
	Page      int
	PageSize  int
}

// ReportDTO represents a cell report
type ReportDTO struct {
	ID             uuid.UUID       `json:"id"`
	CellID         uuid.UUID       `json:"cell_id"`
	ReportDate     time.Time       `json:"report_date"`
	ReportTime     *string         `json:"report_time,omitempty"`
	Attendance     int             `json:"attendance"`
	FirstTimers    int             `json:"first_timers"`
	NewConverts    int             `json:"new_converts"`
	Testimonies    *string         `json:"testimonies,omitempty"`
	OfferingsTotal decimal.Decimal `json:"offerings_total"`
	MeetingType    string          `json:"meeting_type"`
	Status         string          `json:"status"`
	Notes          *string         `json:"notes,omitempty"`
	FinanceEntryID *uuid.UUID      `json:"finance_entry_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ToReportDTO converts a domain report
func ToReportDTO(r *cells.CellReport) ReportDTO {
	return ReportDTO{
		ID:             r.ID,
		CellID:         r.CellID,
		ReportDate:     r.ReportDate,
		ReportTime:     r.ReportTime,
		Attendance:     r.Attendance,
		FirstTimers:    r.FirstTimers,
		NewConverts:    r.NewConverts,
		Testimonies:    r.Testimonies,
		OfferingsTotal: r.OfferingsTotal,
		MeetingType:    string(r.MeetingType),
		Status:         string(r.Status),
		Notes:          r.Notes,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// ReportInput carries the attributes of a report on create and update
type ReportInput struct {
	ReportDate     time.Time
	ReportTime     *string
	Attendance     int
	FirstTimers    int
	NewConverts    int
	Testimonies    *string
	OfferingsTotal decimal.Decimal
	MeetingType    string
	Notes          *string
}

func (in ReportInput) details() cells.ReportDetails {
	return cells.ReportDetails{
		ReportDate:     in.ReportDate,
		ReportTime:     in.ReportTime,
		Attendance:     in.Attendance,
		FirstTimers:    in.FirstTimers,
		NewConverts:    in.NewConverts,
		Testimonies:    in.Testimonies,
		OfferingsTotal: in.OfferingsTotal,
		MeetingType:    cells.MeetingType(in.MeetingType),
		Notes:          in.Notes,
	}
}

// ReportListFilter narrows report listings
type ReportListFilter struct {
	CellID   *uuid.UUID
	Status   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}
