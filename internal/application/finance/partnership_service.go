package finance

import (
	"context"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const entityPartnership = "partnerships"

// PartnershipService manages giving pledges. Org access is checked against the
// partner's home unit.
type PartnershipService struct {
	txScope core.TransactionScope
	authz   *appiam.Authorizer
	logger  *zap.Logger
	now     func() time.Time
}

// NewPartnershipService creates a new PartnershipService
func NewPartnershipService(txScope core.TransactionScope, authz *appiam.Authorizer, logger *zap.Logger) *PartnershipService {
	return &PartnershipService{txScope: txScope, authz: authz, logger: logger, now: time.Now}
}

// List returns partnerships of people in the units the actor can reach
func (s *PartnershipService) List(ctx context.Context, actor core.Actor, f PartnershipListFilter) (shared.Paginated[PartnershipDTO], error) {
	filter := shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: "start_date", OrderDir: "desc"}.Normalize()
	if f.PersonID != nil {
		filter = filter.With("person_id", *f.PersonID)
	}
	if f.FundID != nil {
		filter = filter.With("fund_id", *f.FundID)
	}
	if f.Status != "" {
		filter = filter.With("status", f.Status)
	}

	var result shared.Paginated[PartnershipDTO]
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		units, err := s.authz.AccessibleOrgUnits(ctx, repos, actor.TenantID, actor.UserID)
		if err != nil {
			return err
		}
		filter = filter.With("org_unit_ids", units)
		list, err := repos.PartnershipRepo().FindAll(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		total, err := repos.PartnershipRepo().Count(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		dtos := make([]PartnershipDTO, 0, len(list))
		for i := range list {
			dtos = append(dtos, ToPartnershipDTO(&list[i]))
		}
		result = shared.NewPaginated(dtos, total, filter.Page, filter.PageSize)
		return nil
	})
	return result, err
}

// Get returns a partnership
func (s *PartnershipService) Get(ctx context.Context, actor core.Actor, id uuid.UUID) (*PartnershipDTO, error) {
	var dto PartnershipDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		p, err := s.load(ctx, repos, actor, id, "")
		if err != nil {
			return err
		}
		dto = ToPartnershipDTO(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Create records a pledge for a person in the actor's scope
func (s *PartnershipService) Create(ctx context.Context, actor core.Actor, input CreatePartnershipInput) (*PartnershipDTO, error) {
	var dto PartnershipDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		person, err := repos.PersonRepo().FindByID(ctx, actor.TenantID, input.PersonID)
		if err != nil {
			return err
		}
		if err := s.authz.ValidateOrgAccess(ctx, repos, actor, person.OrgUnitID, iam.PermEntriesCreate); err != nil {
			return err
		}
		if _, err := repos.FundRepo().FindByID(ctx, actor.TenantID, input.FundID); err != nil {
			return err
		}
		if input.PartnershipArmID != nil {
			if _, err := repos.PartnershipArmRepo().FindByID(ctx, actor.TenantID, *input.PartnershipArmID); err != nil {
				return err
			}
		}
		p, err := finance.NewPartnership(actor.TenantID, actor.UserID, input.PersonID, input.FundID,
			input.PartnershipArmID, finance.Cadence(input.Cadence), input.StartDate, input.EndDate, nullDecimal(input.TargetAmount))
		if err != nil {
			return err
		}
		if err := repos.PartnershipRepo().Save(ctx, p); err != nil {
			return err
		}
		dto = ToPartnershipDTO(p)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityPartnership, p.ID, nil, partnershipSnapshot(p))
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Partnership created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("partnership_id", dto.ID.String()),
		zap.String("cadence", dto.Cadence))
	return &dto, nil
}

// Update changes cadence, end date, target or status
func (s *PartnershipService) Update(ctx context.Context, actor core.Actor, id uuid.UUID, input UpdatePartnershipInput) (*PartnershipDTO, error) {
	var dto PartnershipDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		p, err := s.load(ctx, repos, actor, id, iam.PermEntriesUpdate)
		if err != nil {
			return err
		}
		before := partnershipSnapshot(p)
		if input.Cadence != nil {
			c := finance.Cadence(*input.Cadence)
			if !c.IsValid() {
				return shared.Errorf(shared.CodeInvalidInput, "invalid cadence %q", *input.Cadence)
			}
			p.Cadence = c
		}
		if input.Status != nil {
			st := finance.PartnershipStatus(*input.Status)
			if !st.IsValid() {
				return shared.Errorf(shared.CodeInvalidInput, "invalid partnership status %q", *input.Status)
			}
			p.Status = st
		}
		if input.EndDate != nil {
			if input.EndDate.Before(p.StartDate) {
				return shared.NewDomainError(shared.CodeInvalidInput, "end date cannot be before start date")
			}
			p.EndDate = input.EndDate
		}
		if input.TargetAmount != nil {
			if input.TargetAmount.IsNegative() {
				return shared.NewDomainError(shared.CodeInvalidInput, "target amount cannot be negative")
			}
			p.TargetAmount = nullDecimal(input.TargetAmount)
		}
		p.Touch()
		if err := repos.PartnershipRepo().Save(ctx, p); err != nil {
			return err
		}
		dto = ToPartnershipDTO(p)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityPartnership, p.ID, before, partnershipSnapshot(p))
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Delete removes a partnership
func (s *PartnershipService) Delete(ctx context.Context, actor core.Actor, id uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		p, err := s.load(ctx, repos, actor, id, iam.PermEntriesDelete)
		if err != nil {
			return err
		}
		if err := repos.PartnershipRepo().Delete(ctx, actor.TenantID, id); err != nil {
			return err
		}
		before := map[string]any{"id": p.ID, "person_id": p.PersonID, "fund_id": p.FundID}
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionDelete, entityPartnership, id, before, nil)
	})
}

// Fulfilment totals the partner's giving to the pledged fund (and arm) over the
// cadence window ending at the end date, or today
func (s *PartnershipService) Fulfilment(ctx context.Context, actor core.Actor, id uuid.UUID) (*finance.Fulfilment, error) {
	var out finance.Fulfilment
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		p, err := s.load(ctx, repos, actor, id, "")
		if err != nil {
			return err
		}
		from, to := p.Window(s.now())
		total, count, err := repos.EntryRepo().SumForGiver(ctx, actor.TenantID, p.PersonID, p.FundID, p.PartnershipArmID, from, to)
		if err != nil {
			return err
		}
		out = finance.NewFulfilment(p, from, to, total, count)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// load reads a partnership and checks access to the partner's unit. An empty
// code checks org access only.
func (s *PartnershipService) load(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, id uuid.UUID, code string) (*finance.Partnership, error) {
	p, err := repos.PartnershipRepo().FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	person, err := repos.PersonRepo().FindByID(ctx, actor.TenantID, p.PersonID)
	if err != nil {
		return nil, err
	}
	if code == "" {
		err = s.authz.RequireOrgAccess(ctx, repos, actor, person.OrgUnitID)
	} else {
		err = s.authz.ValidateOrgAccess(ctx, repos, actor, person.OrgUnitID, code)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d.Round(2))
}
