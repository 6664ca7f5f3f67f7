package iam

import (
	"slices"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// ScopeType determines which org units an assignment covers
type ScopeType string

const (
	// ScopeSelf covers exactly the assigned unit
	ScopeSelf ScopeType = "self"
	// ScopeSubtree covers the assigned unit and everything below it
	ScopeSubtree ScopeType = "subtree"
	// ScopeCustomSet covers an explicit list of units
	ScopeCustomSet ScopeType = "custom_set"
)

// IsValid reports whether s is a known scope type
func (s ScopeType) IsValid() bool {
	switch s {
	case ScopeSelf, ScopeSubtree, ScopeCustomSet:
		return true
	}
	return false
}

// OrgAssignment grants a role to a user at an org unit
type OrgAssignment struct {
	shared.TenantEntity
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_org_assignments_user_unit"`
	OrgUnitID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_org_assignments_user_unit;index"`
	RoleID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ScopeType ScopeType `gorm:"type:varchar(20);not null;default:'self'"`

	// CustomOrgUnitIDs is loaded from org_assignment_units for custom_set assignments
	CustomOrgUnitIDs []uuid.UUID `gorm:"-"`
}

// TableName returns the table name for GORM
func (OrgAssignment) TableName() string {
	return "org_assignments"
}

// OrgAssignmentUnit lists one extra org unit of a custom_set assignment
type OrgAssignmentUnit struct {
	AssignmentID uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrgUnitID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrgAssignmentUnit) TableName() string {
	return "org_assignment_units"
}

// NewOrgAssignment creates an assignment. Custom units are kept only for custom_set scope.
func NewOrgAssignment(tenantID, createdBy, userID, orgUnitID, roleID uuid.UUID, scope ScopeType, customUnits []uuid.UUID) (*OrgAssignment, error) {
	if scope == "" {
		scope = ScopeSelf
	}
	if !scope.IsValid() {
		return nil, shared.Errorf(shared.CodeInvalidInput, "invalid scope type %q", scope)
	}
	if userID == uuid.Nil || orgUnitID == uuid.Nil || roleID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "user, org unit and role are required")
	}
	a := &OrgAssignment{
		TenantEntity: shared.NewTenantEntity(tenantID, createdBy),
		UserID:       userID,
		OrgUnitID:    orgUnitID,
		RoleID:       roleID,
		ScopeType:    scope,
	}
	if scope == ScopeCustomSet {
		a.CustomOrgUnitIDs = dedupe(customUnits)
	}
	return a, nil
}

// ChangeScope switches the scope type. Leaving custom_set clears the custom units.
func (a *OrgAssignment) ChangeScope(scope ScopeType) error {
	if !scope.IsValid() {
		return shared.Errorf(shared.CodeInvalidInput, "invalid scope type %q", scope)
	}
	if scope != ScopeCustomSet {
		a.CustomOrgUnitIDs = nil
	}
	a.ScopeType = scope
	a.Touch()
	return nil
}

// AddCustomUnit adds an org unit to a custom_set assignment
func (a *OrgAssignment) AddCustomUnit(orgUnitID uuid.UUID) error {
	if a.ScopeType != ScopeCustomSet {
		return shared.NewDomainError(shared.CodeInvalidState,
			"can only add custom units to assignments with custom_set scope")
	}
	if slices.Contains(a.CustomOrgUnitIDs, orgUnitID) {
		return shared.NewDomainError(shared.CodeAlreadyExists, "org unit already in custom set")
	}
	a.CustomOrgUnitIDs = append(a.CustomOrgUnitIDs, orgUnitID)
	return nil
}

// RemoveCustomUnit removes an org unit from a custom_set assignment
func (a *OrgAssignment) RemoveCustomUnit(orgUnitID uuid.UUID) error {
	if a.ScopeType != ScopeCustomSet {
		return shared.NewDomainError(shared.CodeInvalidState,
			"can only remove custom units from assignments with custom_set scope")
	}
	idx := slices.Index(a.CustomOrgUnitIDs, orgUnitID)
	if idx < 0 {
		return shared.NotFound("custom org unit", orgUnitID)
	}
	a.CustomOrgUnitIDs = slices.Delete(a.CustomOrgUnitIDs, idx, idx+1)
	return nil
}

// Covers reports whether the assignment grants access to target.
// targetAncestors is the parent chain of target and is only consulted for subtree scope.
func (a *OrgAssignment) Covers(target uuid.UUID, targetAncestors []uuid.UUID) bool {
	switch a.ScopeType {
	case ScopeSelf:
		return a.OrgUnitID == target
	case ScopeSubtree:
		return a.OrgUnitID == target || slices.Contains(targetAncestors, a.OrgUnitID)
	case ScopeCustomSet:
		return slices.Contains(a.CustomOrgUnitIDs, target)
	}
	return false
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
