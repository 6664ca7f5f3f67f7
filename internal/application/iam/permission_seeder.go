package iam

import (
	"context"
	"errors"
	"slices"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MatrixRow is one line of the permission matrix
type MatrixRow struct {
	RoleName   string
	Permission string
	Granted    bool
}

// SeedResult counts what a seeding run created
type SeedResult struct {
	Roles              int `json:"roles"`
	Permissions        int `json:"permissions"`
	RolesCreated       int `json:"roles_created"`
	PermissionsCreated int `json:"permissions_created"`
	LinksCreated       int `json:"links_created"`
}

// PermissionSeeder loads a role/permission matrix into a tenant. It only
// adds: existing roles, permissions and links are never removed.
type PermissionSeeder struct {
	txScope core.TransactionScope
	authz   *Authorizer
	logger  *zap.Logger
}

// NewPermissionSeeder creates a new PermissionSeeder
func NewPermissionSeeder(txScope core.TransactionScope, authz *Authorizer, logger *zap.Logger) *PermissionSeeder {
	return &PermissionSeeder{txScope: txScope, authz: authz, logger: logger}
}

// Seed creates missing permissions and roles for tenantID and links every
// granted pair, all in one transaction
func (s *PermissionSeeder) Seed(ctx context.Context, tenantID uuid.UUID, rows []MatrixRow) (*SeedResult, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "tenant id is required")
	}
	matrix := map[string]map[string]bool{}
	var codes []string
	for _, row := range rows {
		if matrix[row.RoleName] == nil {
			matrix[row.RoleName] = map[string]bool{}
		}
		matrix[row.RoleName][row.Permission] = row.Granted
		codes = append(codes, row.Permission)
	}
	slices.Sort(codes)
	codes = slices.Compact(codes)
	roleNames := make([]string, 0, len(matrix))
	for name := range matrix {
		roleNames = append(roleNames, name)
	}
	slices.Sort(roleNames)

	result := &SeedResult{Roles: len(roleNames), Permissions: len(codes)}
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		permIDs, err := s.ensurePermissions(ctx, repos, codes, result)
		if err != nil {
			return err
		}
		for _, name := range roleNames {
			roleID, err := s.ensureRole(ctx, repos, tenantID, name, result)
			if err != nil {
				return err
			}
			for code, granted := range matrix[name] {
				if !granted {
					continue
				}
				has, err := repos.RoleRepo().HasPermission(ctx, roleID, permIDs[code])
				if err != nil {
					return err
				}
				if has {
					continue
				}
				if err := repos.RoleRepo().AddPermission(ctx, iam.NewRolePermission(roleID, permIDs[code])); err != nil {
					return err
				}
				result.LinksCreated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.LinksCreated > 0 {
		s.authz.Invalidate(ctx, tenantID)
	}
	s.logger.Info("Permission matrix seeded",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("roles", result.Roles),
		zap.Int("permissions", result.Permissions),
		zap.Int("roles_created", result.RolesCreated),
		zap.Int("permissions_created", result.PermissionsCreated),
		zap.Int("links_created", result.LinksCreated))
	return result, nil
}

func (s *PermissionSeeder) ensurePermissions(ctx context.Context, repos core.TransactionalRepositories, codes []string, result *SeedResult) (map[string]uuid.UUID, error) {
	ids := make(map[string]uuid.UUID, len(codes))
	for _, code := range codes {
		p, err := repos.PermissionRepo().FindByCode(ctx, code)
		if err == nil {
			ids[code] = p.ID
			continue
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		p, err = iam.NewPermission(code, iam.KnownPermissions[code])
		if err != nil {
			return nil, err
		}
		if err := repos.PermissionRepo().Save(ctx, p); err != nil {
			return nil, err
		}
		ids[code] = p.ID
		result.PermissionsCreated++
	}
	return ids, nil
}

func (s *PermissionSeeder) ensureRole(ctx context.Context, repos core.TransactionalRepositories, tenantID uuid.UUID, name string, result *SeedResult) (uuid.UUID, error) {
	role, err := repos.RoleRepo().FindByName(ctx, tenantID, name)
	if err == nil {
		return role.ID, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return uuid.Nil, err
	}
	role, err = iam.NewRole(tenantID, uuid.Nil, name)
	if err != nil {
		return uuid.Nil, err
	}
	if err := repos.RoleRepo().Save(ctx, role); err != nil {
		return uuid.Nil, err
	}
	result.RolesCreated++
	return role.ID, nil
}
