package registry

import (
	"context"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// PersonRepository persists people and their memberships.
// Supported filter keys: "org_unit_id", "org_unit_ids" ([]uuid.UUID); Search matches
// names, email, phone and member code.
type PersonRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Person, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Person, error)
	Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*Person, error)
	FindByMemberCode(ctx context.Context, tenantID uuid.UUID, code string) (*Person, error)
	CountByOrgUnit(ctx context.Context, tenantID, orgUnitID uuid.UUID) (int64, error)

	// MaxMemberCode returns the highest member code in the tenant, or "" when none
	MaxMemberCode(ctx context.Context, tenantID uuid.UUID) (string, error)
	Save(ctx context.Context, person *Person) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	FindMembership(ctx context.Context, personID uuid.UUID) (*Membership, error)
	SaveMembership(ctx context.Context, m *Membership) error
	DeleteMembership(ctx context.Context, personID uuid.UUID) error
	ClearCellMemberships(ctx context.Context, cellID uuid.UUID) (int64, error)
}

// FirstTimerRepository persists first-timers.
// Supported filter keys: "service_id", "status", "org_unit_ids".
type FirstTimerRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*FirstTimer, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]FirstTimer, error)
	Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
	Save(ctx context.Context, ft *FirstTimer) error
	ReassignPerson(ctx context.Context, tenantID, fromPersonID, toPersonID uuid.UUID) (int64, error)
	DetachPerson(ctx context.Context, tenantID, personID uuid.UUID) (int64, error)
}

// ServiceFilter narrows service and attendance queries. Zero values are ignored.
type ServiceFilter struct {
	OrgUnitID  *uuid.UUID
	OrgUnitIDs []uuid.UUID
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// ServiceRepository persists services and their attendance
type ServiceRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Service, error)
	FindByNaturalKey(ctx context.Context, tenantID, orgUnitID uuid.UUID, name string, date time.Time) (*Service, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter ServiceFilter) ([]Service, int64, error)
	Save(ctx context.Context, s *Service) error

	FindAttendanceByID(ctx context.Context, tenantID, id uuid.UUID) (*Attendance, error)
	FindAttendanceByService(ctx context.Context, tenantID, serviceID uuid.UUID) (*Attendance, error)
	FindAttendance(ctx context.Context, tenantID uuid.UUID, filter ServiceFilter) ([]Attendance, int64, error)
	SaveAttendance(ctx context.Context, a *Attendance) error
}

// DepartmentRepository persists departments and their members
type DepartmentRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Department, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Department, error)
	Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
	Save(ctx context.Context, d *Department) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	FindRoles(ctx context.Context, deptID uuid.UUID) ([]DepartmentRole, error)
	FindRole(ctx context.Context, deptID, personID uuid.UUID) (*DepartmentRole, error)
	CountRoles(ctx context.Context, deptID uuid.UUID) (int64, error)
	SaveRole(ctx context.Context, r *DepartmentRole) error
	DeleteRole(ctx context.Context, deptID, personID uuid.UUID) error

	// ReassignPerson moves department roles to another person, dropping those the
	// target already holds in the same department
	ReassignPerson(ctx context.Context, fromPersonID, toPersonID uuid.UUID) (int64, error)
	DeleteRolesOf(ctx context.Context, personID uuid.UUID) (int64, error)
}
