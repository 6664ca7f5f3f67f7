package finance

import (
	"strings"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// OfferingFundName is the fund that cell report offerings are posted to
const OfferingFundName = "Offering"

// Fund is a giving category such as tithe or offering
type Fund struct {
	shared.TenantEntity
	Name          string `gorm:"type:varchar(100);not null"`
	IsPartnership bool   `gorm:"not null;default:false"`
	Active        bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Fund) TableName() string {
	return "funds"
}

// NewFund creates an active fund
func NewFund(tenantID, createdBy uuid.UUID, name string, isPartnership bool) (*Fund, error) {
	name, err := validateLookupName("fund", name)
	if err != nil {
		return nil, err
	}
	return &Fund{
		TenantEntity:  shared.NewTenantEntity(tenantID, createdBy),
		Name:          name,
		IsPartnership: isPartnership,
		Active:        true,
	}, nil
}

// Update changes the fund attributes; nil arguments are left untouched
func (f *Fund) Update(name *string, isPartnership, active *bool) error {
	if name != nil {
		n, err := validateLookupName("fund", *name)
		if err != nil {
			return err
		}
		f.Name = n
	}
	if isPartnership != nil {
		f.IsPartnership = *isPartnership
	}
	if active != nil {
		f.Active = *active
	}
	f.Touch()
	return nil
}

// PartnershipArm is a ministry arm that partners give towards
type PartnershipArm struct {
	shared.TenantEntity
	Name       string     `gorm:"type:varchar(100);not null"`
	ActiveFrom time.Time  `gorm:"type:date;not null"`
	ActiveTo   *time.Time `gorm:"type:date"`
	Active     bool       `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (PartnershipArm) TableName() string {
	return "partnership_arms"
}

// NewPartnershipArm creates an active partnership arm
func NewPartnershipArm(tenantID, createdBy uuid.UUID, name string, activeFrom time.Time, activeTo *time.Time) (*PartnershipArm, error) {
	name, err := validateLookupName("partnership arm", name)
	if err != nil {
		return nil, err
	}
	if activeTo != nil && activeTo.Before(activeFrom) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "active_to cannot be before active_from")
	}
	return &PartnershipArm{
		TenantEntity: shared.NewTenantEntity(tenantID, createdBy),
		Name:         name,
		ActiveFrom:   activeFrom,
		ActiveTo:     activeTo,
		Active:       true,
	}, nil
}

// Update changes the arm attributes; nil arguments are left untouched
func (a *PartnershipArm) Update(name *string, activeFrom, activeTo *time.Time, active *bool) error {
	if name != nil {
		n, err := validateLookupName("partnership arm", *name)
		if err != nil {
			return err
		}
		a.Name = n
	}
	if activeFrom != nil {
		a.ActiveFrom = *activeFrom
	}
	if activeTo != nil {
		a.ActiveTo = activeTo
	}
	if a.ActiveTo != nil && a.ActiveTo.Before(a.ActiveFrom) {
		return shared.NewDomainError(shared.CodeInvalidInput, "active_to cannot be before active_from")
	}
	if active != nil {
		a.Active = *active
	}
	a.Touch()
	return nil
}

func validateLookupName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", shared.Errorf(shared.CodeInvalidInput, "%s name cannot be empty", kind)
	}
	if len(name) > 100 {
		return "", shared.Errorf(shared.CodeInvalidInput, "%s name cannot exceed 100 characters", kind)
	}
	return name, nil
}
