package iam

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const entityOrgUnit = "org_units"

// OrgUnitService manages the org unit tree
type OrgUnitService struct {
	txScope core.TransactionScope
	authz   *Authorizer
	logger  *zap.Logger
}

// NewOrgUnitService creates a new OrgUnitService
func NewOrgUnitService(txScope core.TransactionScope, authz *Authorizer, logger *zap.Logger) *OrgUnitService {
	return &OrgUnitService{txScope: txScope, authz: authz, logger: logger}
}

// List returns org units ordered by name
func (s *OrgUnitService) List(ctx context.Context, actor core.Actor, f OrgUnitListFilter) (shared.Paginated[OrgUnitDTO], error) {
	filter := shared.Filter{
		Page:     f.Page,
		PageSize: f.PageSize,
		OrderBy:  "name",
		OrderDir: "asc",
		Search:   f.Search,
	}.Normalize()
	if f.Type != "" {
		t, err := iam.ParseOrgUnitType(f.Type)
		if err != nil {
			return shared.Paginated[OrgUnitDTO]{}, err
		}
		filter = filter.With("type", t)
	}
	if f.ParentID != nil {
		filter = filter.With("parent_id", *f.ParentID)
	}

	var result shared.Paginated[OrgUnitDTO]
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		units, err := repos.OrgUnitRepo().FindAll(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		total, err := repos.OrgUnitRepo().Count(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		result = shared.NewPaginated(ToOrgUnitDTOs(units), total, filter.Page, filter.PageSize)
		return nil
	})
	return result, err
}

// Get returns a single org unit
func (s *OrgUnitService) Get(ctx context.Context, actor core.Actor, id uuid.UUID) (*OrgUnitDTO, error) {
	var dto OrgUnitDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		unit, err := repos.OrgUnitRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		dto = ToOrgUnitDTO(unit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Children returns the direct children of an org unit
func (s *OrgUnitService) Children(ctx context.Context, actor core.Actor, id uuid.UUID) ([]OrgUnitDTO, error) {
	var out []OrgUnitDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if _, err := repos.OrgUnitRepo().FindByID(ctx, actor.TenantID, id); err != nil {
			return err
		}
		children, err := repos.OrgUnitRepo().FindChildren(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		out = ToOrgUnitDTOs(children)
		return nil
	})
	return out, err
}

// Subtree returns every descendant of an org unit, excluding the unit itself
func (s *OrgUnitService) Subtree(ctx context.Context, actor core.Actor, id uuid.UUID) ([]OrgUnitDTO, error) {
	var out []OrgUnitDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if _, err := repos.OrgUnitRepo().FindByID(ctx, actor.TenantID, id); err != nil {
			return err
		}
		ids, err := repos.OrgUnitRepo().FindDescendantIDs(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		units, err := repos.OrgUnitRepo().FindByIDs(ctx, actor.TenantID, ids)
		if err != nil {
			return err
		}
		out = ToOrgUnitDTOs(units)
		return nil
	})
	return out, err
}

// Ancestors returns the parent chain of an org unit from the root down to its direct parent
func (s *OrgUnitService) Ancestors(ctx context.Context, actor core.Actor, id uuid.UUID) ([]OrgUnitDTO, error) {
	var out []OrgUnitDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if _, err := repos.OrgUnitRepo().FindByID(ctx, actor.TenantID, id); err != nil {
			return err
		}
		units, err := repos.OrgUnitRepo().FindAncestors(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		out = ToOrgUnitDTOs(units)
		return nil
	})
	return out, err
}

// Create adds an org unit, optionally under a parent
func (s *OrgUnitService) Create(ctx context.Context, actor core.Actor, input CreateOrgUnitInput) (*OrgUnitDTO, error) {
	unitType, err := iam.ParseOrgUnitType(input.Type)
	if err != nil {
		return nil, err
	}

	var dto OrgUnitDTO
	err = s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermOrgUnitsCreate); err != nil {
			return err
		}

		var parent *iam.OrgUnit
		if input.ParentID != nil {
			p, err := repos.OrgUnitRepo().FindByID(ctx, actor.TenantID, *input.ParentID)
			if err != nil {
				return err
			}
			parent = p
		}

		unit, err := iam.NewOrgUnit(actor.TenantID, actor.UserID, input.Name, unitType, parent)
		if err != nil {
			return err
		}
		exists, err := repos.OrgUnitRepo().ExistsSibling(ctx, actor.TenantID, unit.ParentID, unit.Name, uuid.Nil)
		if err != nil {
			return err
		}
		if exists {
			return shared.Errorf(shared.CodeAlreadyExists, "org unit %q already exists under the same parent", unit.Name)
		}
		if err := repos.OrgUnitRepo().Save(ctx, unit); err != nil {
			return err
		}

		dto = ToOrgUnitDTO(unit)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityOrgUnit, unit.ID, nil, dto)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Org unit created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("org_unit_id", dto.ID.String()),
		zap.String("type", dto.Type))
	return &dto, nil
}

// Update renames and/or moves an org unit
func (s *OrgUnitService) Update(ctx context.Context, actor core.Actor, id uuid.UUID, input UpdateOrgUnitInput) (*OrgUnitDTO, error) {
	var dto OrgUnitDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermOrgUnitsUpdate); err != nil {
			return err
		}

		unit, err := repos.OrgUnitRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		before := ToOrgUnitDTO(unit)

		if input.ParentID != nil && (unit.ParentID == nil || *unit.ParentID != *input.ParentID) {
			if *input.ParentID == unit.ID {
				return shared.NewDomainError(shared.CodeCircularReference, "org unit cannot be its own parent")
			}
			parent, err := repos.OrgUnitRepo().FindByID(ctx, actor.TenantID, *input.ParentID)
			if err != nil {
				return err
			}
			descendants, err := repos.OrgUnitRepo().FindDescendantIDs(ctx, actor.TenantID, unit.ID)
			if err != nil {
				return err
			}
			if err := unit.MoveTo(parent, descendants); err != nil {
				return err
			}
		}
		if input.Name != nil {
			if err := unit.Rename(*input.Name); err != nil {
				return err
			}
		}

		if input.Name != nil || input.ParentID != nil {
			exists, err := repos.OrgUnitRepo().ExistsSibling(ctx, actor.TenantID, unit.ParentID, unit.Name, unit.ID)
			if err != nil {
				return err
			}
			if exists {
				return shared.Errorf(shared.CodeAlreadyExists, "org unit %q already exists under the same parent", unit.Name)
			}
		}

		if err := repos.OrgUnitRepo().Save(ctx, unit); err != nil {
			return err
		}
		dto = ToOrgUnitDTO(unit)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityOrgUnit, unit.ID, before, dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Delete removes an org unit that has no children, assignments or people
func (s *OrgUnitService) Delete(ctx context.Context, actor core.Actor, id uuid.UUID) error {
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermOrgUnitsDelete); err != nil {
			return err
		}

		unit, err := repos.OrgUnitRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}

		hasChildren, err := repos.OrgUnitRepo().HasChildren(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if hasChildren {
			return shared.NewDomainError(shared.CodeHasDependents, "cannot delete org unit with children")
		}
		assignments, err := repos.AssignmentRepo().CountByOrgUnit(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if assignments > 0 {
			return shared.Errorf(shared.CodeHasDependents, "cannot delete org unit with %d assignment(s)", assignments)
		}
		people, err := repos.PersonRepo().CountByOrgUnit(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if people > 0 {
			return shared.Errorf(shared.CodeHasDependents, "cannot delete org unit with %d people record(s)", people)
		}

		if err := repos.OrgUnitRepo().Delete(ctx, actor.TenantID, id); err != nil {
			return err
		}
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionDelete, entityOrgUnit, id, ToOrgUnitDTO(unit), nil)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Org unit deleted",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("org_unit_id", id.String()))
	return nil
}
