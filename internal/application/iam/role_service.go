package iam

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	entityRole           = "roles"
	entityRolePermission = "role_permissions"
)

// RoleService manages roles and their permission links
type RoleService struct {
	txScope core.TransactionScope
	authz   *Authorizer
	logger  *zap.Logger
}

// NewRoleService creates a new RoleService
func NewRoleService(txScope core.TransactionScope, authz *Authorizer, logger *zap.Logger) *RoleService {
	return &RoleService{txScope: txScope, authz: authz, logger: logger}
}

// List returns the tenant's roles ordered by name
func (s *RoleService) List(ctx context.Context, actor core.Actor, page, pageSize int) (shared.Paginated[RoleDTO], error) {
	filter := shared.Filter{Page: page, PageSize: pageSize, OrderBy: "name", OrderDir: "asc"}.Normalize()

	var result shared.Paginated[RoleDTO]
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		roles, err := repos.RoleRepo().FindAll(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		total, err := repos.RoleRepo().Count(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		dtos := make([]RoleDTO, 0, len(roles))
		for i := range roles {
			dtos = append(dtos, ToRoleDTO(&roles[i]))
		}
		result = shared.NewPaginated(dtos, total, filter.Page, filter.PageSize)
		return nil
	})
	return result, err
}

// Get returns a single role
func (s *RoleService) Get(ctx context.Context, actor core.Actor, id uuid.UUID) (*RoleDTO, error) {
	var dto RoleDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		role, err := repos.RoleRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		dto = ToRoleDTO(role)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Create adds a role with a tenant-unique name
func (s *RoleService) Create(ctx context.Context, actor core.Actor, name string) (*RoleDTO, error) {
	var dto RoleDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermRolesCreate); err != nil {
			return err
		}
		role, err := iam.NewRole(actor.TenantID, actor.UserID, name)
		if err != nil {
			return err
		}
		exists, err := repos.RoleRepo().ExistsByName(ctx, actor.TenantID, role.Name, uuid.Nil)
		if err != nil {
			return err
		}
		if exists {
			return shared.Errorf(shared.CodeAlreadyExists, "role %q already exists", role.Name)
		}
		if err := repos.RoleRepo().Save(ctx, role); err != nil {
			return err
		}
		dto = ToRoleDTO(role)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityRole, role.ID, nil, dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Update renames a role
func (s *RoleService) Update(ctx context.Context, actor core.Actor, id uuid.UUID, name string) (*RoleDTO, error) {
	var dto RoleDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermRolesUpdate); err != nil {
			return err
		}
		role, err := repos.RoleRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		before := ToRoleDTO(role)
		if err := role.Rename(name); err != nil {
			return err
		}
		exists, err := repos.RoleRepo().ExistsByName(ctx, actor.TenantID, role.Name, role.ID)
		if err != nil {
			return err
		}
		if exists {
			return shared.Errorf(shared.CodeAlreadyExists, "role %q already exists", role.Name)
		}
		if err := repos.RoleRepo().Save(ctx, role); err != nil {
			return err
		}
		dto = ToRoleDTO(role)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityRole, role.ID, before, dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Delete removes a role that no assignment references
func (s *RoleService) Delete(ctx context.Context, actor core.Actor, id uuid.UUID) error {
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermRolesDelete); err != nil {
			return err
		}
		role, err := repos.RoleRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		count, err := repos.AssignmentRepo().CountByRole(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return shared.Errorf(shared.CodeHasDependents, "cannot delete role with %d assignment(s)", count)
		}
		if err := repos.RoleRepo().Delete(ctx, actor.TenantID, id); err != nil {
			return err
		}
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionDelete, entityRole, id, ToRoleDTO(role), nil)
	})
	if err != nil {
		return err
	}
	s.authz.Invalidate(ctx, actor.TenantID)
	return nil
}

// Permissions lists the permissions linked to a role
func (s *RoleService) Permissions(ctx context.Context, actor core.Actor, roleID uuid.UUID) ([]PermissionDTO, error) {
	var out []PermissionDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if _, err := repos.RoleRepo().FindByID(ctx, actor.TenantID, roleID); err != nil {
			return err
		}
		perms, err := repos.RoleRepo().FindPermissions(ctx, roleID)
		if err != nil {
			return err
		}
		out = ToPermissionDTOs(perms)
		return nil
	})
	return out, err
}

// AssignPermissions links the given permissions to a role, skipping links that already exist
func (s *RoleService) AssignPermissions(ctx context.Context, actor core.Actor, roleID uuid.UUID, permissionIDs []uuid.UUID) ([]PermissionDTO, error) {
	var out []PermissionDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermRolesAssign); err != nil {
			return err
		}
		if _, err := repos.RoleRepo().FindByID(ctx, actor.TenantID, roleID); err != nil {
			return err
		}
		if err := s.requirePermissionsExist(ctx, repos, permissionIDs); err != nil {
			return err
		}
		for _, pid := range permissionIDs {
			if err := s.addLink(ctx, repos, actor, roleID, pid); err != nil {
				return err
			}
		}
		perms, err := repos.RoleRepo().FindPermissions(ctx, roleID)
		if err != nil {
			return err
		}
		out = ToPermissionDTOs(perms)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.authz.Invalidate(ctx, actor.TenantID)
	return out, nil
}

// RemovePermission unlinks one permission from a role
func (s *RoleService) RemovePermission(ctx context.Context, actor core.Actor, roleID, permissionID uuid.UUID) error {
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermRolesAssign); err != nil {
			return err
		}
		if _, err := repos.RoleRepo().FindByID(ctx, actor.TenantID, roleID); err != nil {
			return err
		}
		linked, err := repos.RoleRepo().HasPermission(ctx, roleID, permissionID)
		if err != nil {
			return err
		}
		if !linked {
			return shared.Errorf(shared.CodeNotFound, "permission %s is not assigned to role %s", permissionID, roleID)
		}
		return s.removeLink(ctx, repos, actor, roleID, permissionID)
	})
	if err != nil {
		return err
	}
	s.authz.Invalidate(ctx, actor.TenantID)
	return nil
}

// ReplacePermissions makes the role's permission set exactly permissionIDs
func (s *RoleService) ReplacePermissions(ctx context.Context, actor core.Actor, roleID uuid.UUID, permissionIDs []uuid.UUID) ([]PermissionDTO, error) {
	var out []PermissionDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermRolesAssign); err != nil {
			return err
		}
		if _, err := repos.RoleRepo().FindByID(ctx, actor.TenantID, roleID); err != nil {
			return err
		}
		if err := s.requirePermissionsExist(ctx, repos, permissionIDs); err != nil {
			return err
		}

		current, err := repos.RoleRepo().FindPermissions(ctx, roleID)
		if err != nil {
			return err
		}
		wanted := make(map[uuid.UUID]struct{}, len(permissionIDs))
		for _, id := range permissionIDs {
			wanted[id] = struct{}{}
		}
		for _, p := range current {
			if _, keep := wanted[p.ID]; keep {
				continue
			}
			if err := s.removeLink(ctx, repos, actor, roleID, p.ID); err != nil {
				return err
			}
		}
		for _, id := range permissionIDs {
			if err := s.addLink(ctx, repos, actor, roleID, id); err != nil {
				return err
			}
		}

		perms, err := repos.RoleRepo().FindPermissions(ctx, roleID)
		if err != nil {
			return err
		}
		out = ToPermissionDTOs(perms)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.authz.Invalidate(ctx, actor.TenantID)
	return out, nil
}

func (s *RoleService) requirePermissionsExist(ctx context.Context, repos core.TransactionalRepositories, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := repos.PermissionRepo().FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	known := make(map[uuid.UUID]struct{}, len(found))
	for _, p := range found {
		known[p.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return shared.NotFound("permission", id)
		}
	}
	return nil
}

// addLink creates the link and its audit row unless it already exists
func (s *RoleService) addLink(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, roleID, permissionID uuid.UUID) error {
	linked, err := repos.RoleRepo().HasPermission(ctx, roleID, permissionID)
	if err != nil || linked {
		return err
	}
	if err := repos.RoleRepo().AddPermission(ctx, iam.NewRolePermission(roleID, permissionID)); err != nil {
		return err
	}
	after := map[string]string{"role_id": roleID.String(), "permission_id": permissionID.String()}
	return core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityRolePermission, roleID, nil, after)
}

func (s *RoleService) removeLink(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, roleID, permissionID uuid.UUID) error {
	if err := repos.RoleRepo().RemovePermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	before := map[string]string{"role_id": roleID.String(), "permission_id": permissionID.String()}
	return core.RecordAudit(ctx, repos, actor, iam.AuditActionDelete, entityRolePermission, roleID, before, nil)
}
