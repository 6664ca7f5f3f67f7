package iam

import (
	"context"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// OrgUnitRepository persists org units.
// Supported filter keys: "type" (OrgUnitType), "parent_id" (uuid.UUID).
type OrgUnitRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*OrgUnit, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]OrgUnit, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]OrgUnit, error)
	Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
	FindChildren(ctx context.Context, tenantID, parentID uuid.UUID) ([]OrgUnit, error)

	// FindDescendantIDs returns every unit below id, excluding id itself
	FindDescendantIDs(ctx context.Context, tenantID, id uuid.UUID) ([]uuid.UUID, error)

	// FindAncestors returns the parent chain of id ordered from the root down to the direct parent
	FindAncestors(ctx context.Context, tenantID, id uuid.UUID) ([]OrgUnit, error)

	// ExistsSibling reports whether a unit with name already sits under parentID,
	// ignoring excludeID when it is not uuid.Nil
	ExistsSibling(ctx context.Context, tenantID uuid.UUID, parentID *uuid.UUID, name string, excludeID uuid.UUID) (bool, error)
	HasChildren(ctx context.Context, tenantID, id uuid.UUID) (bool, error)
	Save(ctx context.Context, unit *OrgUnit) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// RoleRepository persists roles and their permission links
type RoleRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Role, error)
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*Role, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Role, error)
	Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
	ExistsByName(ctx context.Context, tenantID uuid.UUID, name string, excludeID uuid.UUID) (bool, error)
	Save(ctx context.Context, role *Role) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	FindPermissions(ctx context.Context, roleID uuid.UUID) ([]Permission, error)
	HasPermission(ctx context.Context, roleID, permissionID uuid.UUID) (bool, error)
	AddPermission(ctx context.Context, link RolePermission) error
	RemovePermission(ctx context.Context, roleID, permissionID uuid.UUID) error
}

// PermissionRepository persists the global permission catalogue
type PermissionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Permission, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Permission, error)
	FindByCode(ctx context.Context, code string) (*Permission, error)

	// FindAll lists permissions, optionally restricted to codes starting with modulePrefix
	FindAll(ctx context.Context, modulePrefix string) ([]Permission, error)
	Save(ctx context.Context, permission *Permission) error

	// FindCodesForUser returns the distinct permission codes granted to a user through any role
	FindCodesForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]string, error)
}

// AssignmentRepository persists org assignments and their custom units.
// Returned assignments have CustomOrgUnitIDs populated.
type AssignmentRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*OrgAssignment, error)
	FindByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]OrgAssignment, error)
	FindByOrgUnit(ctx context.Context, tenantID, orgUnitID uuid.UUID) ([]OrgAssignment, error)
	Exists(ctx context.Context, tenantID, userID, orgUnitID uuid.UUID) (bool, error)
	CountByOrgUnit(ctx context.Context, tenantID, orgUnitID uuid.UUID) (int64, error)
	CountByRole(ctx context.Context, tenantID, roleID uuid.UUID) (int64, error)

	// Save writes the assignment and replaces its custom unit rows
	Save(ctx context.Context, assignment *OrgAssignment) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// AuditLogFilter narrows audit log queries. Zero values are ignored.
type AuditLogFilter struct {
	ActorID    *uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// AuditLogRepository is append-only
type AuditLogRepository interface {
	Create(ctx context.Context, log *AuditLog) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*AuditLog, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter AuditLogFilter) ([]AuditLog, int64, error)
}
