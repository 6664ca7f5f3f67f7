package registry

import (
	"context"
	"errors"
	"strings"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	entityDepartment     = "departments"
	entityDepartmentRole = "department_roles"
)

// DepartmentService manages departments and their members
type DepartmentService struct {
	txScope core.TransactionScope
	authz   *appiam.Authorizer
	logger  *zap.Logger
}

// NewDepartmentService creates a new DepartmentService
func NewDepartmentService(txScope core.TransactionScope, authz *appiam.Authorizer, logger *zap.Logger) *DepartmentService {
	return &DepartmentService{txScope: txScope, authz: authz, logger: logger}
}

// List returns departments of the actor's org units
func (s *DepartmentService) List(ctx context.Context, actor core.Actor, f DepartmentListFilter) (shared.Paginated[DepartmentDTO], error) {
	filter := shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: "name", OrderDir: "asc"}.Normalize()
	if f.OrgUnitID != nil {
		filter = filter.With("org_unit_id", *f.OrgUnitID)
	}
	if f.Status != "" {
		filter = filter.With("status", f.Status)
	}

	var result shared.Paginated[DepartmentDTO]
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		units, err := s.authz.AccessibleOrgUnits(ctx, repos, actor.TenantID, actor.UserID)
		if err != nil {
			return err
		}
		filter = filter.With("org_unit_ids", units)
		depts, err := repos.DepartmentRepo().FindAll(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		total, err := repos.DepartmentRepo().Count(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		items := make([]DepartmentDTO, 0, len(depts))
		for i := range depts {
			items = append(items, ToDepartmentDTO(&depts[i]))
		}
		result = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	return result, err
}

// Get returns a department the actor can reach
func (s *DepartmentService) Get(ctx context.Context, actor core.Actor, id uuid.UUID) (*DepartmentDTO, error) {
	var dto DepartmentDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		dept, err := s.load(ctx, repos, actor, id, "")
		if err != nil {
			return err
		}
		dto = ToDepartmentDTO(dept)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Create adds a department to an org unit
func (s *DepartmentService) Create(ctx context.Context, actor core.Actor, orgUnitID uuid.UUID, name string) (*DepartmentDTO, error) {
	var dto DepartmentDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.ValidateOrgAccess(ctx, repos, actor, orgUnitID, iam.PermDepartmentsCreate); err != nil {
			return err
		}
		if _, err := repos.OrgUnitRepo().FindByID(ctx, actor.TenantID, orgUnitID); err != nil {
			return err
		}
		dept, err := registry.NewDepartment(actor.TenantID, actor.UserID, orgUnitID, name)
		if err != nil {
			return err
		}
		if err := s.ensureUnique(ctx, repos, actor.TenantID, dept.OrgUnitID, dept.Name, uuid.Nil); err != nil {
			return err
		}
		if err := repos.DepartmentRepo().Save(ctx, dept); err != nil {
			return err
		}
		dto = ToDepartmentDTO(dept)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityDepartment, dept.ID, nil, dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Update renames a department or changes its status
func (s *DepartmentService) Update(ctx context.Context, actor core.Actor, id uuid.UUID, name, status *string) (*DepartmentDTO, error) {
	var dto DepartmentDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		dept, err := s.load(ctx, repos, actor, id, iam.PermDepartmentsUpdate)
		if err != nil {
			return err
		}
		before := ToDepartmentDTO(dept)
		if err := dept.Update(name, status); err != nil {
			return err
		}
		if name != nil {
			if err := s.ensureUnique(ctx, repos, actor.TenantID, dept.OrgUnitID, dept.Name, dept.ID); err != nil {
				return err
			}
		}
		if err := repos.DepartmentRepo().Save(ctx, dept); err != nil {
			return err
		}
		dto = ToDepartmentDTO(dept)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityDepartment, dept.ID, before, dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Delete removes a department without members
func (s *DepartmentService) Delete(ctx context.Context, actor core.Actor, id uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		dept, err := s.load(ctx, repos, actor, id, iam.PermDepartmentsDelete)
		if err != nil {
			return err
		}
		members, err := repos.DepartmentRepo().CountRoles(ctx, dept.ID)
		if err != nil {
			return err
		}
		if members > 0 {
			return shared.Errorf(shared.CodeHasDependents, "department has %d members", members)
		}
		if err := repos.DepartmentRepo().Delete(ctx, actor.TenantID, dept.ID); err != nil {
			return err
		}
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionDelete, entityDepartment, dept.ID, ToDepartmentDTO(dept), nil)
	})
}

// Members lists the roles held in a department
func (s *DepartmentService) Members(ctx context.Context, actor core.Actor, id uuid.UUID) ([]DepartmentMemberDTO, error) {
	var out []DepartmentMemberDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		dept, err := s.load(ctx, repos, actor, id, "")
		if err != nil {
			return err
		}
		roles, err := repos.DepartmentRepo().FindRoles(ctx, dept.ID)
		if err != nil {
			return err
		}
		out = make([]DepartmentMemberDTO, 0, len(roles))
		for i := range roles {
			out = append(out, ToDepartmentMemberDTO(&roles[i]))
		}
		return nil
	})
	return out, err
}

// AssignMember gives a person a role in the department, replacing any role they held
func (s *DepartmentService) AssignMember(ctx context.Context, actor core.Actor, id uuid.UUID, input AssignMemberInput) (*DepartmentMemberDTO, error) {
	var dto DepartmentMemberDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		dept, err := s.load(ctx, repos, actor, id, iam.PermDepartmentsUpdate)
		if err != nil {
			return err
		}
		if _, err := repos.PersonRepo().FindByID(ctx, actor.TenantID, input.PersonID); err != nil {
			return err
		}
		role := registry.DepartmentRoleType(strings.ToLower(strings.TrimSpace(input.Role)))
		if role == "" {
			role = registry.DepartmentMember
		}
		assigned, err := registry.NewDepartmentRole(dept.ID, input.PersonID, role, input.StartDate, input.EndDate)
		if err != nil {
			return err
		}

		var before any
		existing, err := repos.DepartmentRepo().FindRole(ctx, dept.ID, input.PersonID)
		switch {
		case err == nil:
			before = ToDepartmentMemberDTO(existing)
			assigned.BaseEntity = existing.BaseEntity
			assigned.Touch()
		case !errors.Is(err, shared.ErrNotFound):
			return err
		}
		if err := repos.DepartmentRepo().SaveRole(ctx, assigned); err != nil {
			return err
		}
		dto = ToDepartmentMemberDTO(assigned)
		action := iam.AuditActionCreate
		if before != nil {
			action = iam.AuditActionUpdate
		}
		return core.RecordAudit(ctx, repos, actor, action, entityDepartmentRole, assigned.ID, before, dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// RemoveMember takes a person out of the department
func (s *DepartmentService) RemoveMember(ctx context.Context, actor core.Actor, id, personID uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		dept, err := s.load(ctx, repos, actor, id, iam.PermDepartmentsUpdate)
		if err != nil {
			return err
		}
		role, err := repos.DepartmentRepo().FindRole(ctx, dept.ID, personID)
		if err != nil {
			return err
		}
		if err := repos.DepartmentRepo().DeleteRole(ctx, dept.ID, personID); err != nil {
			return err
		}
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionDelete, entityDepartmentRole, role.ID, ToDepartmentMemberDTO(role), nil)
	})
}

func (s *DepartmentService) load(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, id uuid.UUID, code string) (*registry.Department, error) {
	dept, err := repos.DepartmentRepo().FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if code == "" {
		err = s.authz.RequireOrgAccess(ctx, repos, actor, dept.OrgUnitID)
	} else {
		err = s.authz.ValidateOrgAccess(ctx, repos, actor, dept.OrgUnitID, code)
	}
	if err != nil {
		return nil, err
	}
	return dept, nil
}

// ensureUnique rejects a second department with the same name in an org unit
func (s *DepartmentService) ensureUnique(ctx context.Context, repos core.TransactionalRepositories, tenantID, orgUnitID uuid.UUID, name string, excludeID uuid.UUID) error {
	filter := shared.DefaultFilter().With("org_unit_id", orgUnitID)
	filter.PageSize = shared.MaxPageSize
	depts, err := repos.DepartmentRepo().FindAll(ctx, tenantID, filter)
	if err != nil {
		return err
	}
	for _, d := range depts {
		if d.ID != excludeID && strings.EqualFold(d.Name, name) {
			return shared.Errorf(shared.CodeAlreadyExists, "department %q already exists", name)
		}
	}
	return nil
}
