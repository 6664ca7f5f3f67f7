package registry

import (
	"context"
	"errors"
	"strings"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	entityPerson     = "people"
	entityMembership = "memberships"

	// AuditActionMerge is recorded on the surviving person of a merge
	AuditActionMerge = "merge"
)

// PersonService manages people and their memberships
type PersonService struct {
	txScope core.TransactionScope
	authz   *appiam.Authorizer
	logger  *zap.Logger
}

// NewPersonService creates a new PersonService
func NewPersonService(txScope core.TransactionScope, authz *appiam.Authorizer, logger *zap.Logger) *PersonService {
	return &PersonService{txScope: txScope, authz: authz, logger: logger}
}

// List returns the people of the actor's org units
func (s *PersonService) List(ctx context.Context, actor core.Actor, f PersonListFilter) (shared.Paginated[PersonDTO], error) {
	filter := shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: "last_name", OrderDir: "asc"}.Normalize()
	filter.Search = strings.TrimSpace(f.Search)
	if f.OrgUnitID != nil {
		filter = filter.With("org_unit_id", *f.OrgUnitID)
	}

	var result shared.Paginated[PersonDTO]
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		units, err := s.authz.AccessibleOrgUnits(ctx, repos, actor.TenantID, actor.UserID)
		if err != nil {
			return err
		}
		filter = filter.With("org_unit_ids", units)
		people, err := repos.PersonRepo().FindAll(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		total, err := repos.PersonRepo().Count(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		items := make([]PersonDTO, 0, len(people))
		for i := range people {
			m, err := findMembership(ctx, repos, people[i].ID)
			if err != nil {
				return err
			}
			items = append(items, ToPersonDTO(&people[i], m))
		}
		result = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	return result, err
}

// Get returns a person the actor can reach
func (s *PersonService) Get(ctx context.Context, actor core.Actor, id uuid.UUID) (*PersonDTO, error) {
	var dto PersonDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		person, err := repos.PersonRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if err := s.authz.RequireOrgAccess(ctx, repos, actor, person.OrgUnitID); err != nil {
			return err
		}
		m, err := findMembership(ctx, repos, person.ID)
		if err != nil {
			return err
		}
		dto = ToPersonDTO(person, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Create registers a person, assigning the next member code of the tenant
func (s *PersonService) Create(ctx context.Context, actor core.Actor, input PersonInput) (*PersonDTO, error) {
	var dto PersonDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.ValidateOrgAccess(ctx, repos, actor, input.OrgUnitID, iam.PermPeopleCreate); err != nil {
			return err
		}
		person, m, err := CreatePersonInTx(ctx, repos, actor, input)
		if err != nil {
			return err
		}
		dto = ToPersonDTO(person, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Person created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("person_id", dto.ID.String()),
		zap.Stringp("member_code", dto.MemberCode))
	return &dto, nil
}

// CreatePersonInTx creates a person and its membership inside an open transaction.
// Callers are responsible for the permission check on input.OrgUnitID.
func CreatePersonInTx(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, input PersonInput) (*registry.Person, *registry.Membership, error) {
	if _, err := repos.OrgUnitRepo().FindByID(ctx, actor.TenantID, input.OrgUnitID); err != nil {
		return nil, nil, err
	}
	person, err := registry.NewPerson(actor.TenantID, actor.UserID, input.OrgUnitID, input.details())
	if err != nil {
		return nil, nil, err
	}
	highest, err := repos.PersonRepo().MaxMemberCode(ctx, actor.TenantID)
	if err != nil {
		return nil, nil, err
	}
	code := registry.NextMemberCode(highest)
	person.MemberCode = &code
	if err := repos.PersonRepo().Save(ctx, person); err != nil {
		return nil, nil, err
	}

	var m *registry.Membership
	if input.Membership != nil {
		m, err = upsertMembership(ctx, repos, actor.TenantID, person.ID, *input.Membership)
		if err != nil {
			return nil, nil, err
		}
	}
	err = core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityPerson, person.ID, nil, map[string]any{
		"id":          person.ID,
		"org_unit_id": person.OrgUnitID,
		"member_code": code,
		"first_name":  person.FirstName,
		"last_name":   person.LastName,
	})
	if err != nil {
		return nil, nil, err
	}
	return person, m, nil
}

// Update replaces a person's attributes and upserts their membership when given.
// Moving a person to another org unit needs access to both units.
func (s *PersonService) Update(ctx context.Context, actor core.Actor, id uuid.UUID, input PersonInput) (*PersonDTO, error) {
	var dto PersonDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		person, err := repos.PersonRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if err := s.authz.ValidateOrgAccess(ctx, repos, actor, person.OrgUnitID, iam.PermPeopleUpdate); err != nil {
			return err
		}
		m, err := findMembership(ctx, repos, person.ID)
		if err != nil {
			return err
		}
		before := ToPersonDTO(person, m)

		if input.OrgUnitID != uuid.Nil && input.OrgUnitID != person.OrgUnitID {
			if err := s.authz.ValidateOrgAccess(ctx, repos, actor, input.OrgUnitID, iam.PermPeopleUpdate); err != nil {
				return err
			}
			if _, err := repos.OrgUnitRepo().FindByID(ctx, actor.TenantID, input.OrgUnitID); err != nil {
				return err
			}
			person.OrgUnitID = input.OrgUnitID
		}
		if err := person.Apply(input.details()); err != nil {
			return err
		}
		if err := repos.PersonRepo().Save(ctx, person); err != nil {
			return err
		}
		if input.Membership != nil {
			if m, err = upsertMembership(ctx, repos, actor.TenantID, person.ID, *input.Membership); err != nil {
				return err
			}
		}
		dto = ToPersonDTO(person, m)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityPerson, person.ID, before, dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// UpdateMembership upserts the membership of an existing person
func (s *PersonService) UpdateMembership(ctx context.Context, actor core.Actor, id uuid.UUID, input MembershipInput) (*PersonDTO, error) {
	var dto PersonDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		person, err := repos.PersonRepo().FindByID(ctx, actor.TenantID, id)
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
		var before any
		if existing != nil {
			before = ToPersonDTO(person, existing).Membership
		}
		m, err := upsertMembership(ctx, repos, actor.TenantID, person.ID, input)
		if err != nil {
			return err
		}
		dto = ToPersonDTO(person, m)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityMembership, person.ID, before, dto.Membership)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Delete removes a person and their membership. People who gave or pledged
// must be merged instead so their finance history survives.
func (s *PersonService) Delete(ctx context.Context, actor core.Actor, id uuid.UUID) error {
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		person, err := repos.PersonRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if err := s.authz.ValidateOrgAccess(ctx, repos, actor, person.OrgUnitID, iam.PermPeopleUpdate); err != nil {
			return err
		}
		_, entries, err := repos.EntryRepo().FindAll(ctx, actor.TenantID, finance.EntryFilter{PersonID: &person.ID, Page: 1, PageSize: 1})
		if err != nil {
			return err
		}
		pledges, err := repos.PartnershipRepo().Count(ctx, actor.TenantID, shared.DefaultFilter().With("person_id", person.ID))
		if err != nil {
			return err
		}
		if entries > 0 || pledges > 0 {
			return shared.Errorf(shared.CodeHasDependents,
				"person has %d finance entries and %d partnerships", entries, pledges)
		}
		if _, err := repos.FirstTimerRepo().DetachPerson(ctx, actor.TenantID, person.ID); err != nil {
			return err
		}
		if _, err := repos.DepartmentRepo().DeleteRolesOf(ctx, person.ID); err != nil {
			return err
		}
		if _, err := repos.CellRepo().ClearLeader(ctx, actor.TenantID, person.ID); err != nil {
			return err
		}
		if err := repos.PersonRepo().Delete(ctx, actor.TenantID, person.ID); err != nil {
			return err
		}
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionDelete, entityPerson, person.ID, map[string]any{
			"id":          person.ID,
			"member_code": person.MemberCode,
			"name":        person.FullName(),
		}, nil)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Person deleted", zap.String("tenant_id", actor.TenantID.String()), zap.String("person_id", id.String()))
	return nil
}

// MergeInput names the duplicate to fold into the surviving person
type MergeInput struct {
	SourceID uuid.UUID
	TargetID uuid.UUID
	Reason   string
}

// MergeResult counts the references moved from the duplicate
type MergeResult struct {
	Person          PersonDTO `json:"person"`
	FirstTimers     int64     `json:"first_timers"`
	DepartmentRoles int64     `json:"department_roles"`
	FinanceEntries  int64     `json:"finance_entries"`
	Partnerships    int64     `json:"partnerships"`
	CellLeaderships int64     `json:"cell_leaderships"`
}

// Merge moves every reference of the source person to the target and deletes the source
func (s *PersonService) Merge(ctx context.Context, actor core.Actor, input MergeInput) (*MergeResult, error) {
	if input.SourceID == input.TargetID {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "cannot merge a person into themselves")
	}
	var result MergeResult
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		source, err := repos.PersonRepo().FindByID(ctx, actor.TenantID, input.SourceID)
		if err != nil {
			return err
		}
		target, err := repos.PersonRepo().FindByID(ctx, actor.TenantID, input.TargetID)
		if err != nil {
			return err
		}
		for _, unit := range []uuid.UUID{source.OrgUnitID, target.OrgUnitID} {
			if err := s.authz.ValidateOrgAccess(ctx, repos, actor, unit, iam.PermPeopleMerge); err != nil {
				return err
			}
		}

		tenant := actor.TenantID
		if result.FirstTimers, err = repos.FirstTimerRepo().ReassignPerson(ctx, tenant, source.ID, target.ID); err != nil {
			return err
		}
		if result.DepartmentRoles, err = repos.DepartmentRepo().ReassignPerson(ctx, source.ID, target.ID); err != nil {
			return err
		}
		if result.FinanceEntries, err = repos.EntryRepo().ReassignPerson(ctx, tenant, source.ID, target.ID); err != nil {
			return err
		}
		if result.Partnerships, err = repos.PartnershipRepo().ReassignPerson(ctx, tenant, source.ID, target.ID); err != nil {
			return err
		}
		if result.CellLeaderships, err = repos.CellRepo().ReassignLeader(ctx, tenant, source.ID, target.ID); err != nil {
			return err
		}

		membership, err := mergeMemberships(ctx, repos, source.ID, target.ID)
		if err != nil {
			return err
		}
		if err := repos.PersonRepo().Delete(ctx, tenant, source.ID); err != nil {
			return err
		}

		result.Person = ToPersonDTO(target, membership)
		return core.RecordAudit(ctx, repos, actor, AuditActionMerge, entityPerson, target.ID,
			map[string]any{
				"source": map[string]any{"id": source.ID, "name": source.FullName()},
				"target": map[string]any{"id": target.ID, "name": target.FullName()},
			},
			map[string]any{
				"target":           target.ID,
				"reason":           input.Reason,
				"first_timers":     result.FirstTimers,
				"department_roles": result.DepartmentRoles,
				"finance_entries":  result.FinanceEntries,
				"partnerships":     result.Partnerships,
			})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("People merged",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("source_id", input.SourceID.String()),
		zap.String("target_id", input.TargetID.String()))
	return &result, nil
}

// mergeMemberships keeps the target's membership, filling its gaps from the source's.
// The source membership moves over when the target has none.
func mergeMemberships(ctx context.Context, repos core.TransactionalRepositories, sourceID, targetID uuid.UUID) (*registry.Membership, error) {
	src, err := findMembership(ctx, repos, sourceID)
	if err != nil {
		return nil, err
	}
	dst, err := findMembership(ctx, repos, targetID)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return dst, nil
	}
	if err := repos.PersonRepo().DeleteMembership(ctx, sourceID); err != nil {
		return nil, err
	}
	if dst == nil {
		moved := *src
		moved.PersonID = targetID
		if err := repos.PersonRepo().SaveMembership(ctx, &moved); err != nil {
			return nil, err
		}
		return &moved, nil
	}
	if dst.JoinDate == nil {
		dst.JoinDate = src.JoinDate
	}
	if dst.BaptismDate == nil {
		dst.BaptismDate = src.BaptismDate
	}
	if dst.CellID == nil {
		dst.CellID = src.CellID
	}
	dst.FoundationCompleted = dst.FoundationCompleted || src.FoundationCompleted
	if err := repos.PersonRepo().SaveMembership(ctx, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

func upsertMembership(ctx context.Context, repos core.TransactionalRepositories, tenantID, personID uuid.UUID, in MembershipInput) (*registry.Membership, error) {
	if in.CellID != nil {
		if _, err := repos.CellRepo().FindByID(ctx, tenantID, *in.CellID); err != nil {
			return nil, err
		}
	}
	m, err := registry.NewMembership(personID, registry.MembershipStatus(strings.ToLower(in.Status)),
		in.JoinDate, in.FoundationCompleted, in.BaptismDate, in.CellID)
	if err != nil {
		return nil, err
	}
	if err := repos.PersonRepo().SaveMembership(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// findMembership returns nil when the person has no membership
func findMembership(ctx context.Context, repos core.TransactionalRepositories, personID uuid.UUID) (*registry.Membership, error) {
	m, err := repos.PersonRepo().FindMembership(ctx, personID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return m, err
}
