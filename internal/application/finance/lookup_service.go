package finance

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	entityFund           = "funds"
	entityPartnershipArm = "partnership_arms"
)

// LookupService manages funds and partnership arms
type LookupService struct {
	txScope core.TransactionScope
	authz   *appiam.Authorizer
	logger  *zap.Logger
}

// NewLookupService creates a new LookupService
func NewLookupService(txScope core.TransactionScope, authz *appiam.Authorizer, logger *zap.Logger) *LookupService {
	return &LookupService{txScope: txScope, authz: authz, logger: logger}
}

// ListFunds returns the tenant's funds ordered by name
func (s *LookupService) ListFunds(ctx context.Context, actor core.Actor, activeOnly bool) ([]FundDTO, error) {
	var out []FundDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		funds, err := repos.FundRepo().FindAll(ctx, actor.TenantID, activeOnly)
		if err != nil {
			return err
		}
		out = make([]FundDTO, 0, len(funds))
		for i := range funds {
			out = append(out, ToFundDTO(&funds[i]))
		}
		return nil
	})
	return out, err
}

// GetFund returns a single fund
func (s *LookupService) GetFund(ctx context.Context, actor core.Actor, id uuid.UUID) (*FundDTO, error) {
	var dto FundDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		fund, err := repos.FundRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		dto = ToFundDTO(fund)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// CreateFund adds a fund with a tenant-unique name
func (s *LookupService) CreateFund(ctx context.Context, actor core.Actor, input CreateFundInput) (*FundDTO, error) {
	var dto FundDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermFinanceLookupsManage); err != nil {
			return err
		}
		fund, err := finance.NewFund(actor.TenantID, actor.UserID, input.Name, input.IsPartnership)
		if err != nil {
			return err
		}
		if err := s.ensureUniqueFund(ctx, repos, actor.TenantID, fund.Name, uuid.Nil); err != nil {
			return err
		}
		if err := repos.FundRepo().Save(ctx, fund); err != nil {
			return err
		}
		dto = ToFundDTO(fund)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityFund, fund.ID, nil, dto)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Fund created", zap.String("tenant_id", actor.TenantID.String()), zap.String("name", dto.Name))
	return &dto, nil
}

// UpdateFund changes a fund's name or flags
func (s *LookupService) UpdateFund(ctx context.Context, actor core.Actor, id uuid.UUID, input UpdateFundInput) (*FundDTO, error) {
	var dto FundDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermFinanceLookupsManage); err != nil {
			return err
		}
		fund, err := repos.FundRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		before := ToFundDTO(fund)
		if err := fund.Update(input.Name, input.IsPartnership, input.Active); err != nil {
			return err
		}
		if input.Name != nil {
			if err := s.ensureUniqueFund(ctx, repos, actor.TenantID, fund.Name, fund.ID); err != nil {
				return err
			}
		}
		if err := repos.FundRepo().Save(ctx, fund); err != nil {
			return err
		}
		dto = ToFundDTO(fund)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityFund, fund.ID, before, dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// DeleteFund removes a fund that no finance entry references
func (s *LookupService) DeleteFund(ctx context.Context, actor core.Actor, id uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermFinanceLookupsManage); err != nil {
			return err
		}
		fund, err := repos.FundRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		count, err := repos.EntryRepo().CountByFund(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return shared.Errorf(shared.CodeHasDependents,
				"cannot delete fund %q: %d finance entr(y/ies) reference it", fund.Name, count)
		}
		if err := repos.FundRepo().Delete(ctx, actor.TenantID, id); err != nil {
			return err
		}
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionDelete, entityFund, id, ToFundDTO(fund), nil)
	})
}

func (s *LookupService) ensureUniqueFund(ctx context.Context, repos core.TransactionalRepositories, tenantID uuid.UUID, name string, excludeID uuid.UUID) error {
	exists, err := repos.FundRepo().ExistsByName(ctx, tenantID, name, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.Errorf(shared.CodeAlreadyExists, "fund %q already exists", name)
	}
	return nil
}

// ListArms returns the tenant's partnership arms
func (s *LookupService) ListArms(ctx context.Context, actor core.Actor, activeOnly bool) ([]PartnershipArmDTO, error) {
	var out []PartnershipArmDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		arms, err := repos.PartnershipArmRepo().FindAll(ctx, actor.TenantID, activeOnly)
		if err != nil {
			return err
		}
		out = make([]PartnershipArmDTO, 0, len(arms))
		for i := range arms {
			out = append(out, ToPartnershipArmDTO(&arms[i]))
		}
		return nil
	})
	return out, err
}

// GetArm returns a single partnership arm
func (s *LookupService) GetArm(ctx context.Context, actor core.Actor, id uuid.UUID) (*PartnershipArmDTO, error) {
	var dto PartnershipArmDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		arm, err := repos.PartnershipArmRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		dto = ToPartnershipArmDTO(arm)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// CreateArm adds a partnership arm with a tenant-unique name
func (s *LookupService) CreateArm(ctx context.Context, actor core.Actor, input CreatePartnershipArmInput) (*PartnershipArmDTO, error) {
	var dto PartnershipArmDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermFinanceLookupsManage); err != nil {
			return err
		}
		arm, err := finance.NewPartnershipArm(actor.TenantID, actor.UserID, input.Name, input.ActiveFrom, input.ActiveTo)
		if err != nil {
			return err
		}
		if err := s.ensureUniqueArm(ctx, repos, actor.TenantID, arm.Name, uuid.Nil); err != nil {
			return err
		}
		if err := repos.PartnershipArmRepo().Save(ctx, arm); err != nil {
			return err
		}
		dto = ToPartnershipArmDTO(arm)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityPartnershipArm, arm.ID, nil, dto)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Partnership arm created", zap.String("tenant_id", actor.TenantID.String()), zap.String("name", dto.Name))
	return &dto, nil
}

// UpdateArm changes a partnership arm
func (s *LookupService) UpdateArm(ctx context.Context, actor core.Actor, id uuid.UUID, input UpdatePartnershipArmInput) (*PartnershipArmDTO, error) {
	var dto PartnershipArmDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermFinanceLookupsManage); err != nil {
			return err
		}
		arm, err := repos.PartnershipArmRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		before := ToPartnershipArmDTO(arm)
		if err := arm.Update(input.Name, input.ActiveFrom, input.ActiveTo, input.Active); err != nil {
			return err
		}
		if input.Name != nil {
			if err := s.ensureUniqueArm(ctx, repos, actor.TenantID, arm.Name, arm.ID); err != nil {
				return err
			}
		}
		if err := repos.PartnershipArmRepo().Save(ctx, arm); err != nil {
			return err
		}
		dto = ToPartnershipArmDTO(arm)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityPartnershipArm, arm.ID, before, dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// DeleteArm removes an arm that neither entries nor partnerships reference
func (s *LookupService) DeleteArm(ctx context.Context, actor core.Actor, id uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermFinanceLookupsManage); err != nil {
			return err
		}
		arm, err := repos.PartnershipArmRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		entries, err := repos.EntryRepo().CountByPartnershipArm(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		pledges, err := repos.PartnershipRepo().CountByPartnershipArm(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if entries+pledges > 0 {
			return shared.Errorf(shared.CodeHasDependents,
				"cannot delete partnership arm %q: referenced by %d entr(y/ies) and %d partnership(s)", arm.Name, entries, pledges)
		}
		if err := repos.PartnershipArmRepo().Delete(ctx, actor.TenantID, id); err != nil {
			return err
		}
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionDelete, entityPartnershipArm, id, ToPartnershipArmDTO(arm), nil)
	})
}

func (s *LookupService) ensureUniqueArm(ctx context.Context, repos core.TransactionalRepositories, tenantID uuid.UUID, name string, excludeID uuid.UUID) error {
	exists, err := repos.PartnershipArmRepo().ExistsByName(ctx, tenantID, name, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.Errorf(shared.CodeAlreadyExists, "partnership arm %q already exists", name)
	}
	return nil
}
