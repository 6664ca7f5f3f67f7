package cells

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/cells"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const entityCell = "cells"

// CellService manages cells
type CellService struct {
	txScope core.TransactionScope
	authz   *appiam.Authorizer
	logger  *zap.Logger
}

// NewCellService creates a new CellService
func NewCellService(txScope core.TransactionScope, authz *appiam.Authorizer, logger *zap.Logger) *CellService {
	return &CellService{txScope: txScope, authz: authz, logger: logger}
}

// List returns cells of the actor's org units
func (s *CellService) List(ctx context.Context, actor core.Actor, f CellListFilter) (shared.Paginated[CellDTO], error) {
	filter := shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: "name", OrderDir: "asc"}.Normalize()
	if f.OrgUnitID != nil {
		filter = filter.With("org_unit_id", *f.OrgUnitID)
	}
	if f.LeaderID != nil {
		filter = filter.With("leader_id", *f.LeaderID)
	}
	if f.Status != "" {
		filter = filter.With("status", f.Status)
	}

	var result shared.Paginated[CellDTO]
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		units, err := s.authz.AccessibleOrgUnits(ctx, repos, actor.TenantID, actor.UserID)
		if err != nil {
			return err
		}
		filter = filter.With("org_unit_ids", units)
		list, err := repos.CellRepo().FindAll(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		total, err := repos.CellRepo().Count(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		items := make([]CellDTO, 0, len(list))
		for i := range list {
			items = append(items, ToCellDTO(&list[i]))
		}
		result = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	return result, err
}

// Get returns a cell the actor can reach
func (s *CellService) Get(ctx context.Context, actor core.Actor, id uuid.UUID) (*CellDTO, error) {
	var dto CellDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		cell, err := loadCell(ctx, repos, s.authz, actor, id, "")
		if err != nil {
			return err
		}
		dto = ToCellDTO(cell)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Create adds a cell with a unique name within its org unit
func (s *CellService) Create(ctx context.Context, actor core.Actor, input CellInput) (*CellDTO, error) {
	var dto CellDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.ValidateOrgAccess(ctx, repos, actor, input.OrgUnitID, iam.PermCellsManage); err != nil {
			return err
		}
		if _, err := repos.OrgUnitRepo().FindByID(ctx, actor.TenantID, input.OrgUnitID); err != nil {
			return err
		}
		cell, err := cells.NewCell(actor.TenantID, actor.UserID, input.OrgUnitID, input.details())
		if err != nil {
			return err
		}
		if err := s.validate(ctx, repos, actor.TenantID, cell); err != nil {
			return err
		}
		if err := repos.CellRepo().Save(ctx, cell); err != nil {
			return err
		}
		dto = ToCellDTO(cell)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityCell, cell.ID, nil, dto)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Cell created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("cell_id", dto.ID.String()),
		zap.String("name", dto.Name))
	return &dto, nil
}

// Update replaces a cell's attributes; the org unit never changes
func (s *CellService) Update(ctx context.Context, actor core.Actor, id uuid.UUID, input CellInput) (*CellDTO, error) {
	var dto CellDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		cell, err := loadCell(ctx, repos, s.authz, actor, id, iam.PermCellsManage)
		if err != nil {
			return err
		}
		before := ToCellDTO(cell)
		if err := cell.Apply(input.details()); err != nil {
			return err
		}
		if err := s.validate(ctx, repos, actor.TenantID, cell); err != nil {
			return err
		}
		if err := repos.CellRepo().Save(ctx, cell); err != nil {
			return err
		}
		dto = ToCellDTO(cell)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityCell, cell.ID, before, dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Delete removes a cell without reports and detaches its members
func (s *CellService) Delete(ctx context.Context, actor core.Actor, id uuid.UUID) error {
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		cell, err := loadCell(ctx, repos, s.authz, actor, id, iam.PermCellsManage)
		if err != nil {
			return err
		}
		reports, err := repos.CellReportRepo().CountByCell(ctx, actor.TenantID, cell.ID)
		if err != nil {
			return err
		}
		if reports > 0 {
			return shared.Errorf(shared.CodeHasDependents, "cell has %d reports", reports)
		}
		if _, err := repos.PersonRepo().ClearCellMemberships(ctx, cell.ID); err != nil {
			return err
		}
		if err := repos.CellRepo().Delete(ctx, actor.TenantID, cell.ID); err != nil {
			return err
		}
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionDelete, entityCell, cell.ID, ToCellDTO(cell), nil)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Cell deleted", zap.String("tenant_id", actor.TenantID.String()), zap.String("cell_id", id.String()))
	return nil
}

// validate checks name uniqueness and that leaders are people of the tenant
func (s *CellService) validate(ctx context.Context, repos core.TransactionalRepositories, tenantID uuid.UUID, cell *cells.Cell) error {
	exists, err := repos.CellRepo().ExistsByName(ctx, tenantID, cell.OrgUnitID, cell.Name, cell.ID)
	if err != nil {
		return err
	}
	if exists {
		return shared.Errorf(shared.CodeAlreadyExists, "cell %q already exists in this org unit", cell.Name)
	}
	for _, id := range []*uuid.UUID{cell.LeaderID, cell.AssistantLeaderID} {
		if id == nil {
			continue
		}
		if _, err := repos.PersonRepo().FindByID(ctx, tenantID, *id); err != nil {
			return err
		}
	}
	return nil
}

// loadCell fetches a cell and checks access to its org unit. An empty code
// only checks reachability.
func loadCell(ctx context.Context, repos core.TransactionalRepositories, authz *appiam.Authorizer, actor core.Actor, id uuid.UUID, code string) (*cells.Cell, error) {
	cell, err := repos.CellRepo().FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if code == "" {
		err = authz.RequireOrgAccess(ctx, repos, actor, cell.OrgUnitID)
	} else {
		err = authz.ValidateOrgAccess(ctx, repos, actor, cell.OrgUnitID, code)
	}
	if err != nil {
		return nil, err
	}
	return cell, nil
}
