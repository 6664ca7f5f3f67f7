package registry

import (
	"strings"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// DepartmentStatus values
const (
	DepartmentActive   = "active"
	DepartmentInactive = "inactive"
)

// Department is a serving team within an org unit
type Department struct {
	shared.TenantEntity
	OrgUnitID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(200);not null"`
	Status    string    `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (Department) TableName() string {
	return "departments"
}

// NewDepartment creates an active department
func NewDepartment(tenantID, createdBy, orgUnitID uuid.UUID, name string) (*Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "department name is required")
	}
	return &Department{
		TenantEntity: shared.NewTenantEntity(tenantID, createdBy),
		OrgUnitID:    orgUnitID,
		Name:         name,
		Status:       DepartmentActive,
	}, nil
}

// Update renames the department or changes its status
func (d *Department) Update(name, status *string) error {
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return shared.NewDomainError(shared.CodeInvalidInput, "department name is required")
		}
		d.Name = n
	}
	if status != nil {
		if *status != DepartmentActive && *status != DepartmentInactive {
			return shared.Errorf(shared.CodeInvalidInput, "invalid department status %q", *status)
		}
		d.Status = *status
	}
	d.Touch()
	return nil
}

// DepartmentRoleType is a person's role within a department
type DepartmentRoleType string

const (
	DepartmentLeader DepartmentRoleType = "leader"
	DepartmentMember DepartmentRoleType = "member"
)

// DepartmentRole assigns a person to a department
type DepartmentRole struct {
	shared.BaseEntity
	DeptID    uuid.UUID          `gorm:"column:dept_id;type:uuid;not null;uniqueIndex:idx_department_roles_dept_person"`
	PersonID  uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_department_roles_dept_person;index"`
	Role      DepartmentRoleType `gorm:"type:varchar(20);not null"`
	StartDate *time.Time         `gorm:"type:date"`
	EndDate   *time.Time         `gorm:"type:date"`
}

// TableName returns the table name for GORM
func (DepartmentRole) TableName() string {
	return "department_roles"
}

// NewDepartmentRole assigns personID to deptID
func NewDepartmentRole(deptID, personID uuid.UUID, role DepartmentRoleType, start, end *time.Time) (*DepartmentRole, error) {
	if role != DepartmentLeader && role != DepartmentMember {
		return nil, shared.Errorf(shared.CodeInvalidInput, "invalid department role %q", role)
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "end date cannot be before start date")
	}
	return &DepartmentRole{
		BaseEntity: shared.NewBaseEntity(),
		DeptID:     deptID,
		PersonID:   personID,
		Role:       role,
		StartDate:  start,
		EndDate:    end,
	}, nil
}
