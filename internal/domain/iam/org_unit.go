package iam

import (
	"strings"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// OrgUnitType is the hierarchy level of an org unit
type OrgUnitType string

const (
	OrgUnitTypeRegion   OrgUnitType = "region"
	OrgUnitTypeZone     OrgUnitType = "zone"
	OrgUnitTypeGroup    OrgUnitType = "group"
	OrgUnitTypeChurch   OrgUnitType = "church"
	OrgUnitTypeOutreach OrgUnitType = "outreach"
)

var orgUnitLevels = map[OrgUnitType]int{
	OrgUnitTypeRegion:   0,
	OrgUnitTypeZone:     1,
	OrgUnitTypeGroup:    2,
	OrgUnitTypeChurch:   3,
	OrgUnitTypeOutreach: 4,
}

// OrgUnitTypes returns every type from the top of the hierarchy down
func OrgUnitTypes() []OrgUnitType {
	return []OrgUnitType{
		OrgUnitTypeRegion,
		OrgUnitTypeZone,
		OrgUnitTypeGroup,
		OrgUnitTypeChurch,
		OrgUnitTypeOutreach,
	}
}

// IsValid reports whether t is a known org unit type
func (t OrgUnitType) IsValid() bool {
	_, ok := orgUnitLevels[t]
	return ok
}

// Level returns the depth of the type in the hierarchy, region being 0.
// Unknown types return -1.
func (t OrgUnitType) Level() int {
	level, ok := orgUnitLevels[t]
	if !ok {
		return -1
	}
	return level
}

// ParseOrgUnitType parses a type name case-insensitively
func ParseOrgUnitType(s string) (OrgUnitType, error) {
	t := OrgUnitType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.Errorf(shared.CodeInvalidInput, "invalid org unit type %q", s)
	}
	return t, nil
}

// CheckPlacement verifies that a unit of type child may sit directly under a unit of type parent.
// Children must be strictly further down the hierarchy than their parent.
func CheckPlacement(parent, child OrgUnitType) error {
	if child.Level() <= parent.Level() {
		return shared.Errorf(shared.CodeInvalidHierarchy,
			"invalid hierarchy: %s (level %d) cannot be a child of %s (level %d)",
			child, child.Level(), parent, parent.Level())
	}
	return nil
}

// OrgUnit is a node in the tenant's organisational tree
type OrgUnit struct {
	shared.TenantAggregateRoot
	Name     string      `gorm:"type:varchar(200);not null"`
	Type     OrgUnitType `gorm:"type:varchar(20);not null;index"`
	ParentID *uuid.UUID  `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (OrgUnit) TableName() string {
	return "org_units"
}

// NewOrgUnit creates an org unit, optionally below parent
func NewOrgUnit(tenantID, createdBy uuid.UUID, name string, unitType OrgUnitType, parent *OrgUnit) (*OrgUnit, error) {
	name, err := validateOrgUnitName(name)
	if err != nil {
		return nil, err
	}
	if !unitType.IsValid() {
		return nil, shared.Errorf(shared.CodeInvalidInput, "invalid org unit type %q", unitType)
	}

	unit := &OrgUnit{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, createdBy),
		Name:                name,
		Type:                unitType,
	}
	if parent != nil {
		if !parent.BelongsTo(tenantID) {
			return nil, shared.NotFound("parent org unit", parent.ID)
		}
		if err := CheckPlacement(parent.Type, unitType); err != nil {
			return nil, err
		}
		unit.ParentID = &parent.ID
	}
	return unit, nil
}

// Rename changes the unit name
func (u *OrgUnit) Rename(name string) error {
	name, err := validateOrgUnitName(name)
	if err != nil {
		return err
	}
	u.Name = name
	u.IncrementVersion()
	return nil
}

// MoveTo re-parents the unit. A nil parent makes it a root.
// descendantIDs must hold every unit below u so that cycles can be rejected.
func (u *OrgUnit) MoveTo(parent *OrgUnit, descendantIDs []uuid.UUID) error {
	if parent == nil {
		u.ParentID = nil
		u.IncrementVersion()
		return nil
	}
	if parent.ID == u.ID {
		return shared.NewDomainError(shared.CodeCircularReference, "org unit cannot be its own parent")
	}
	for _, id := range descendantIDs {
		if id == parent.ID {
			return shared.NewDomainError(shared.CodeCircularReference,
				"cannot move org unit under one of its descendants")
		}
	}
	if err := CheckPlacement(parent.Type, u.Type); err != nil {
		return err
	}
	u.ParentID = &parent.ID
	u.IncrementVersion()
	return nil
}

// IsRoot reports whether the unit has no parent
func (u *OrgUnit) IsRoot() bool {
	return u.ParentID == nil
}

func validateOrgUnitName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "org unit name cannot be empty")
	}
	if len(name) > 200 {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "org unit name cannot exceed 200 characters")
	}
	return name, nil
}
