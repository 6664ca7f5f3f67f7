package iam

import (
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/google/uuid"
)

// OrgUnitDTO represents an org unit
type OrgUnitDTO struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenant_id"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ToOrgUnitDTO converts a domain org unit
func ToOrgUnitDTO(u *iam.OrgUnit) OrgUnitDTO {
	return OrgUnitDTO{
		ID:        u.ID,
		TenantID:  u.TenantID,
		Name:      u.Name,
		Type:      string(u.Type),
		ParentID:  u.ParentID,
		Version:   u.Version,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// ToOrgUnitDTOs converts a slice of org units
func ToOrgUnitDTOs(units []iam.OrgUnit) []OrgUnitDTO {
	out := make([]OrgUnitDTO, 0, len(units))
	for i := range units {
		out = append(out, ToOrgUnitDTO(&units[i]))
	}
	return out
}

// CreateOrgUnitInput contains input for creating an org unit
type CreateOrgUnitInput struct {
	Name     string
	Type     string
	ParentID *uuid.UUID
}

// UpdateOrgUnitInput renames and/or moves an org unit. Nil fields are left unchanged.
type UpdateOrgUnitInput struct {
	Name     *string
	ParentID *uuid.UUID
}

// OrgUnitListFilter narrows org unit listings
type OrgUnitListFilter struct {
	Type     string
	ParentID *uuid.UUID
	Search   string
	Page     int
	PageSize int
}

// RoleDTO represents a role
type RoleDTO struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToRoleDTO converts a domain role
func ToRoleDTO(r *iam.Role) RoleDTO {
	return RoleDTO{
		ID:        r.ID,
		TenantID:  r.TenantID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// PermissionDTO represents a permission
type PermissionDTO struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	Module      string    `json:"module"`
}

// ToPermissionDTOs converts permissions
func ToPermissionDTOs(perms []iam.Permission) []PermissionDTO {
	out := make([]PermissionDTO, 0, len(perms))
	for i := range perms {
		out = append(out, PermissionDTO{
			ID:          perms[i].ID,
			Code:        perms[i].Code,
			Description: perms[i].Description,
			Module:      perms[i].Module(),
		})
	}
	return out
}

// AssignmentDTO represents an org assignment
type AssignmentDTO struct {
	ID               uuid.UUID   `json:"id"`
	TenantID         uuid.UUID   `json:"tenant_id"`
	UserID           uuid.UUID   `json:"user_id"`
	OrgUnitID        uuid.UUID   `json:"org_unit_id"`
	RoleID           uuid.UUID   `json:"role_id"`
	ScopeType        string      `json:"scope_type"`
	CustomOrgUnitIDs []uuid.UUID `json:"custom_org_unit_ids"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// ToAssignmentDTO converts a domain assignment
func ToAssignmentDTO(a *iam.OrgAssignment) AssignmentDTO {
	custom := a.CustomOrgUnitIDs
	if custom == nil {
		custom = []uuid.UUID{}
	}
	return AssignmentDTO{
		ID:               a.ID,
		TenantID:         a.TenantID,
		UserID:           a.UserID,
		OrgUnitID:        a.OrgUnitID,
		RoleID:           a.RoleID,
		ScopeType:        string(a.ScopeType),
		CustomOrgUnitIDs: custom,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// ToAssignmentDTOs converts assignments
func ToAssignmentDTOs(items []iam.OrgAssignment) []AssignmentDTO {
	out := make([]AssignmentDTO, 0, len(items))
	for i := range items {
		out = append(out, ToAssignmentDTO(&items[i]))
	}
	return out
}

// CreateAssignmentInput contains input for creating an assignment
type CreateAssignmentInput struct {
	UserID           uuid.UUID
	OrgUnitID        uuid.UUID
	RoleID           uuid.UUID
	ScopeType        string
	CustomOrgUnitIDs []uuid.UUID
}

// UpdateAssignmentInput changes the role and/or scope of an assignment
type UpdateAssignmentInput struct {
	RoleID    *uuid.UUID
	ScopeType *string
}

// BulkAssignmentFailure reports one assignment of a bulk request that could not be created
type BulkAssignmentFailure struct {
	Input CreateAssignmentInput `json:"assignment"`
	Error string                `json:"error"`
}

// BulkAssignmentResult is the outcome of CreateBulk
type BulkAssignmentResult struct {
	Created []AssignmentDTO         `json:"created"`
	Failed  []BulkAssignmentFailure `json:"failed"`
}

// AuditLogDTO represents an audit row
type AuditLogDTO struct {
	ID         uuid.UUID  `json:"id"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	Action     string     `json:"action"`
	EntityType string     `json:"entity_type"`
	EntityID   *uuid.UUID `json:"entity_id,omitempty"`
	Before     *string    `json:"before_json,omitempty"`
	After      *string    `json:"after_json,omitempty"`
	IP         string     `json:"ip,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// ToAuditLogDTO converts an audit row
func ToAuditLogDTO(l *iam.AuditLog) AuditLogDTO {
	return AuditLogDTO{
		ID:         l.ID,
		ActorID:    l.ActorID,
		Action:     l.Action,
		EntityType: l.EntityType,
		EntityID:   l.EntityID,
		Before:     l.BeforeJSON,
		After:      l.AfterJSON,
		IP:         l.IP,
		UserAgent:  l.UserAgent,
		OccurredAt: l.OccurredAt,
	}
}
