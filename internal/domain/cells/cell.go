package cells

import (
	"strings"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// Cell status values
const (
	CellActive   = "active"
	CellInactive = "inactive"
)

var meetingDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// MeetingDays lists the accepted meeting day names
func MeetingDays() []string {
	return append([]string(nil), meetingDays...)
}

// Cell is a small group meeting under an org unit
type Cell struct {
	shared.TenantEntity
	OrgUnitID         uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_cells_unit_name"`
	Name              string     `gorm:"type:varchar(200);not null;uniqueIndex:idx_cells_unit_name"`
	LeaderID          *uuid.UUID `gorm:"type:uuid"`
	AssistantLeaderID *uuid.UUID `gorm:"type:uuid"`
	Venue             *string    `gorm:"type:varchar(200)"`
	MeetingDay        *string    `gorm:"type:varchar(10)"`
	MeetingTime       *string    `gorm:"type:varchar(8)"`
	Status            string     `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (Cell) TableName() string {
	return "cells"
}

// CellDetails are the editable attributes of a cell
type CellDetails struct {
	Name              string
	LeaderID          *uuid.UUID
	AssistantLeaderID *uuid.UUID
	Venue             *string
	MeetingDay        *string
	MeetingTime       *string
	Status            string
}

// NewCell creates an active cell
func NewCell(tenantID, createdBy, orgUnitID uuid.UUID, d CellDetails) (*Cell, error) {
	if orgUnitID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "org unit is required")
	}
	c := &Cell{
		TenantEntity: shared.NewTenantEntity(tenantID, createdBy),
		OrgUnitID:    orgUnitID,
		Status:       CellActive,
	}
	if err := c.Apply(d); err != nil {
		return nil, err
	}
	return c, nil
}

// Apply validates and sets the cell attributes
func (c *Cell) Apply(d CellDetails) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "cell name is required")
	}
	if d.LeaderID != nil && d.AssistantLeaderID != nil && *d.LeaderID == *d.AssistantLeaderID {
		return shared.NewDomainError(shared.CodeInvalidInput, "leader and assistant leader must be different people")
	}
	var day *string
	if d.MeetingDay != nil {
		for _, md := range meetingDays {
			if strings.EqualFold(md, strings.TrimSpace(*d.MeetingDay)) {
				v := md
				day = &v
			}
		}
		if day == nil {
			return shared.Errorf(shared.CodeInvalidInput, "invalid meeting day %q", *d.MeetingDay)
		}
	}
	status := d.Status
	if status == "" {
		status = c.Status
	}
	if status != CellActive && status != CellInactive {
		return shared.Errorf(shared.CodeInvalidInput, "invalid cell status %q", status)
	}

	c.Name = name
	c.LeaderID = d.LeaderID
	c.AssistantLeaderID = d.AssistantLeaderID
	c.Venue = d.Venue
	c.MeetingDay = day
	c.MeetingTime = d.MeetingTime
	c.Status = status
	c.Touch()
	return nil
}
