package iam

import (
	"strings"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// Role groups permissions and is granted to users through org assignments
type Role struct {
	shared.TenantEntity
	Name string `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (Role) TableName() string {
	return "roles"
}

// NewRole creates a role for a tenant
func NewRole(tenantID, createdBy uuid.UUID, name string) (*Role, error) {
	name, err := validateRoleName(name)
	if err != nil {
		return nil, err
	}
	return &Role{
		TenantEntity: shared.NewTenantEntity(tenantID, createdBy),
		Name:         name,
	}, nil
}

// Rename changes the role name
func (r *Role) Rename(name string) error {
	name, err := validateRoleName(name)
	if err != nil {
		return err
	}
	r.Name = name
	r.Touch()
	return nil
}

func validateRoleName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "role name cannot be empty")
	}
	if len(name) > 100 {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "role name cannot exceed 100 characters")
	}
	return name, nil
}

// Permission is a global, dotted capability code such as finance.batches.lock
type Permission struct {
	shared.BaseEntity
	Code        string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Description string `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (Permission) TableName() string {
	return "permissions"
}

// NewPermission creates a permission from its code
func NewPermission(code, description string) (*Permission, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "permission code cannot be empty")
	}
	if !strings.Contains(code, ".") {
		return nil, shared.Errorf(shared.CodeInvalidInput, "permission code %q must be dotted", code)
	}
	return &Permission{
		BaseEntity:  shared.NewBaseEntity(),
		Code:        code,
		Description: strings.TrimSpace(description),
	}, nil
}

// Module returns the first segment of the code, e.g. "finance"
func (p *Permission) Module() string {
	module, _, _ := strings.Cut(p.Code, ".")
	return module
}

// RolePermission links a role to a permission
type RolePermission struct {
	RoleID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	PermissionID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RolePermission) TableName() string {
	return "role_permissions"
}

// NewRolePermission links roleID to permissionID
func NewRolePermission(roleID, permissionID uuid.UUID) RolePermission {
	return RolePermission{
		RoleID:       roleID,
		PermissionID: permissionID,
		CreatedAt:    time.Now().UTC(),
	}
}
