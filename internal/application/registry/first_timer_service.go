package registry

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	entityFirstTimer = "first_timers"

	// AuditActionConvert is recorded when a first-timer becomes a member
	AuditActionConvert = "convert_to_member"
)

// FirstTimerService tracks first-time visitors and their follow-up
type FirstTimerService struct {
	txScope core.TransactionScope
	authz   *appiam.Authorizer
	logger  *zap.Logger
}

// NewFirstTimerService creates a new FirstTimerService
func NewFirstTimerService(txScope core.TransactionScope, authz *appiam.Authorizer, logger *zap.Logger) *FirstTimerService {
	return &FirstTimerService{txScope: txScope, authz: authz, logger: logger}
}

// List returns first-timers of services held in the actor's org units
func (s *FirstTimerService) List(ctx context.Context, actor core.Actor, f FirstTimerListFilter) (shared.Paginated[FirstTimerDTO], error) {
	filter := shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: "created_at", OrderDir: "desc"}.Normalize()
	if f.ServiceID != nil {
		filter = filter.With("service_id", *f.ServiceID)
	}
	if f.Status != "" {
		status, err := registry.ParseFirstTimerStatus(f.Status)
		if err != nil {
			return shared.Paginated[FirstTimerDTO]{}, err
		}
		filter = filter.With("status", string(status))
	}

	var result shared.Paginated[FirstTimerDTO]
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		units, err := s.authz.AccessibleOrgUnits(ctx, repos, actor.TenantID, actor.UserID)
		if err != nil {
			return err
		}
		filter = filter.With("org_unit_ids", units)
		list, err := repos.FirstTimerRepo().FindAll(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		total, err := repos.FirstTimerRepo().Count(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		items := make([]FirstTimerDTO, 0, len(list))
		for i := range list {
			items = append(items, ToFirstTimerDTO(&list[i]))
		}
		result = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	return result, err
}

// Get returns a first-timer the actor can reach through its service
func (s *FirstTimerService) Get(ctx context.Context, actor core.Actor, id uuid.UUID) (*FirstTimerDTO, error) {
	var dto FirstTimerDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		ft, _, err := s.load(ctx, repos, actor, id, "")
		if err != nil {
			return err
		}
		dto = ToFirstTimerDTO(ft)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Create records a first-timer at a service
func (s *FirstTimerService) Create(ctx context.Context, actor core.Actor, input CreateFirstTimerInput) (*FirstTimerDTO, error) {
	var dto FirstTimerDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		service, err := repos.ServiceRepo().FindByID(ctx, actor.TenantID, input.ServiceID)
		if err != nil {
			return err
		}
		if err := s.authz.ValidateOrgAccess(ctx, repos, actor, service.OrgUnitID, iam.PermFirstTimersCreate); err != nil {
			return err
		}
		if input.PersonID != nil {
			if _, err := repos.PersonRepo().FindByID(ctx, actor.TenantID, *input.PersonID); err != nil {
				return err
			}
		}
		ft, err := registry.NewFirstTimer(actor.TenantID, actor.UserID, service.ID, input.PersonID, input.Source, input.Notes)
		if err != nil {
			return err
		}
		if err := repos.FirstTimerRepo().Save(ctx, ft); err != nil {
			return err
		}
		dto = ToFirstTimerDTO(ft)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityFirstTimer, ft.ID, nil, dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// UpdateStatus moves a first-timer along the follow-up states
func (s *FirstTimerService) UpdateStatus(ctx context.Context, actor core.Actor, id uuid.UUID, status string, notes *string) (*FirstTimerDTO, error) {
	parsed, err := registry.ParseFirstTimerStatus(status)
	if err != nil {
		return nil, err
	}
	var dto FirstTimerDTO
	err = s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		ft, _, err := s.load(ctx, repos, actor, id, iam.PermFirstTimersUpdate)
		if err != nil {
			return err
		}
		before := ToFirstTimerDTO(ft)
		ft.SetStatus(parsed)
		if notes != nil {
			ft.Notes = notes
		}
		if err := repos.FirstTimerRepo().Save(ctx, ft); err != nil {
			return err
		}
		dto = ToFirstTimerDTO(ft)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityFirstTimer, ft.ID, before, dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// ConvertInput describes the person created for a converted first-timer.
// Person is ignored when the first-timer is already linked to someone.
type ConvertInput struct {
	Person PersonInput
}

// ConvertResult is the converted first-timer and the member it now points to
type ConvertResult struct {
	FirstTimer FirstTimerDTO `json:"first_timer"`
	Person     PersonDTO     `json:"person"`
}

// Convert turns a first-timer into a member. A linked person gets a member
// membership; otherwise a new person is created in the requested org unit
// with the service date as join date.
func (s *FirstTimerService) Convert(ctx context.Context, actor core.Actor, id uuid.UUID, input ConvertInput) (*ConvertResult, error) {
	var result ConvertResult
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		ft, service, err := s.load(ctx, repos, actor, id, iam.PermFirstTimersUpdate)
		if err != nil {
			return err
		}
		if ft.Status == registry.FirstTimerMember && ft.PersonID != nil {
			return shared.NewDomainError(shared.CodeInvalidState, "first-timer already converted")
		}
		before := ToFirstTimerDTO(ft)
		joined := service.ServiceDate
		membership := MembershipInput{Status: string(registry.MembershipMember), JoinDate: &joined}

		var person *registry.Person
		var m *registry.Membership
		if ft.PersonID != nil {
			person, err = repos.PersonRepo().FindByID(ctx, actor.TenantID, *ft.PersonID)
			if err != nil {
				return err
			}
			if err := s.authz.ValidateOrgAccess(ctx, repos, actor, person.OrgUnitID, iam.PermPeopleUpdate); err != nil {
				return err
			}
			existing, err := findMembership(ctx, repos, person.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				membership.JoinDate = existing.JoinDate
				membership.FoundationCompleted = existing.FoundationCompleted
				membership.BaptismDate = existing.BaptismDate
				membership.CellID = existing.CellID
				if membership.JoinDate == nil {
					membership.JoinDate = &joined
				}
			}
			if m, err = upsertMembership(ctx, repos, actor.TenantID, person.ID, membership); err != nil {
				return err
			}
		} else {
			in := input.Person
			if in.OrgUnitID == uuid.Nil {
				in.OrgUnitID = service.OrgUnitID
			}
			if err := s.authz.ValidateOrgAccess(ctx, repos, actor, in.OrgUnitID, iam.PermPeopleCreate); err != nil {
				return err
			}
			in.Membership = &membership
			if person, m, err = CreatePersonInTx(ctx, repos, actor, in); err != nil {
				return err
			}
		}

		if err := ft.ConvertTo(person.ID); err != nil {
			return err
		}
		if err := repos.FirstTimerRepo().Save(ctx, ft); err != nil {
			return err
		}
		result.FirstTimer = ToFirstTimerDTO(ft)
		result.Person = ToPersonDTO(person, m)
		return core.RecordAudit(ctx, repos, actor, AuditActionConvert, entityFirstTimer, ft.ID, before, map[string]any{
			"person_id": person.ID,
			"status":    ft.Status,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("First-timer converted",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("first_timer_id", id.String()),
		zap.String("person_id", result.Person.ID.String()))
	return &result, nil
}

// load fetches a first-timer with its service and checks access to the
// service's org unit. An empty code only checks reachability.
func (s *FirstTimerService) load(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, id uuid.UUID, code string) (*registry.FirstTimer, *registry.Service, error) {
	ft, err := repos.FirstTimerRepo().FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, nil, err
	}
	service, err := repos.ServiceRepo().FindByID(ctx, actor.TenantID, ft.ServiceID)
	if err != nil {
		return nil, nil, err
	}
	if code == "" {
		err = s.authz.RequireOrgAccess(ctx, repos, actor, service.OrgUnitID)
	} else {
		err = s.authz.ValidateOrgAccess(ctx, repos, actor, service.OrgUnitID, code)
	}
	if err != nil {
		return nil, nil, err
	}
	return ft, service, nil
}
