package registry

import (
	"strings"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// FirstTimerStatus tracks follow-up of a first-time visitor
type FirstTimerStatus string

const (
	FirstTimerNew       FirstTimerStatus = "New"
	FirstTimerContacted FirstTimerStatus = "Contacted"
	FirstTimerReturned  FirstTimerStatus = "Returned"
	FirstTimerMember    FirstTimerStatus = "Member"
)

// ParseFirstTimerStatus matches a status case-insensitively
func ParseFirstTimerStatus(s string) (FirstTimerStatus, error) {
	for _, st := range []FirstTimerStatus{FirstTimerNew, FirstTimerContacted, FirstTimerReturned, FirstTimerMember} {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", shared.Errorf(shared.CodeInvalidInput, "invalid first-timer status %q", s)
}

// FirstTimer records someone attending a service for the first time
type FirstTimer struct {
	shared.TenantEntity
	PersonID  *uuid.UUID       `gorm:"type:uuid;index"`
	ServiceID uuid.UUID        `gorm:"type:uuid;not null;index"`
	Source    *string          `gorm:"type:varchar(200)"`
	Status    FirstTimerStatus `gorm:"type:varchar(20);not null;default:'New'"`
	Notes     *string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (FirstTimer) TableName() string {
	return "first_timers"
}

// NewFirstTimer creates a first-timer in the New state
func NewFirstTimer(tenantID, createdBy, serviceID uuid.UUID, personID *uuid.UUID, source, notes *string) (*FirstTimer, error) {
	if serviceID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "service is required")
	}
	return &FirstTimer{
		TenantEntity: shared.NewTenantEntity(tenantID, createdBy),
		PersonID:     personID,
		ServiceID:    serviceID,
		Source:       cleanOptional(source),
		Status:       FirstTimerNew,
		Notes:        notes,
	}, nil
}

// SetStatus changes the follow-up status
func (f *FirstTimer) SetStatus(status FirstTimerStatus) {
	f.Status = status
	f.Touch()
}

// ConvertTo links the first-timer to personID and marks them a member
func (f *FirstTimer) ConvertTo(personID uuid.UUID) error {
	if f.Status == FirstTimerMember && f.PersonID != nil {
		return shared.NewDomainError(shared.CodeInvalidState, "first-timer already converted")
	}
	f.PersonID = &personID
	f.Status = FirstTimerMember
	f.Touch()
	return nil
}
