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
	entityAssignment = "org_assignments"

	auditActionAddCustomUnit    = "add_custom_unit"
	auditActionRemoveCustomUnit = "remove_custom_unit"
)

// AssignmentService grants roles to users at org units
type AssignmentService struct {
	txScope core.TransactionScope
	authz   *Authorizer
	logger  *zap.Logger
}

// NewAssignmentService creates a new AssignmentService
func NewAssignmentService(txScope core.TransactionScope, authz *Authorizer, logger *zap.Logger) *AssignmentService {
	return &AssignmentService{txScope: txScope, authz: authz, logger: logger}
}

// ListForUser returns every assignment of a user
func (s *AssignmentService) ListForUser(ctx context.Context, actor core.Actor, userID uuid.UUID) ([]AssignmentDTO, error) {
	var out []AssignmentDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		items, err := repos.AssignmentRepo().FindByUser(ctx, actor.TenantID, userID)
		if err != nil {
			return err
		}
		out = ToAssignmentDTOs(items)
		return nil
	})
	return out, err
}

// ListForOrgUnit returns every assignment made at an org unit
func (s *AssignmentService) ListForOrgUnit(ctx context.Context, actor core.Actor, orgUnitID uuid.UUID) ([]AssignmentDTO, error) {
	var out []AssignmentDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		items, err := repos.AssignmentRepo().FindByOrgUnit(ctx, actor.TenantID, orgUnitID)
		if err != nil {
			return err
		}
		out = ToAssignmentDTOs(items)
		return nil
	})
	return out, err
}

// Get returns a single assignment
func (s *AssignmentService) Get(ctx context.Context, actor core.Actor, id uuid.UUID) (*AssignmentDTO, error) {
	var dto AssignmentDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		a, err := repos.AssignmentRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		dto = ToAssignmentDTO(a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Create grants a role to a user at an org unit
func (s *AssignmentService) Create(ctx context.Context, actor core.Actor, input CreateAssignmentInput) (*AssignmentDTO, error) {
	var dto AssignmentDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		created, err := s.create(ctx, repos, actor, input)
		if err != nil {
			return err
		}
		dto = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.authz.Invalidate(ctx, actor.TenantID)
	return &dto, nil
}

// CreateBulk creates each assignment in its own transaction and reports the failures
func (s *AssignmentService) CreateBulk(ctx context.Context, actor core.Actor, inputs []CreateAssignmentInput) (*BulkAssignmentResult, error) {
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		return s.authz.RequirePermission(ctx, repos, actor, iam.PermUsersAssign)
	})
	if err != nil {
		return nil, err
	}

	result := &BulkAssignmentResult{
		Created: []AssignmentDTO{},
		Failed:  []BulkAssignmentFailure{},
	}
	for _, input := range inputs {
		var dto AssignmentDTO
		err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
			created, err := s.create(ctx, repos, actor, input)
			dto = created
			return err
		})
		if err != nil {
			result.Failed = append(result.Failed, BulkAssignmentFailure{Input: input, Error: err.Error()})
			continue
		}
		result.Created = append(result.Created, dto)
	}
	if len(result.Created) > 0 {
		s.authz.Invalidate(ctx, actor.TenantID)
	}
	return result, nil
}

// CreateInTx creates an assignment inside the caller's transaction. The caller
// must call Authorizer.Invalidate once the transaction commits.
func (s *AssignmentService) CreateInTx(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, input CreateAssignmentInput) (AssignmentDTO, error) {
	return s.create(ctx, repos, actor, input)
}

func (s *AssignmentService) create(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, input CreateAssignmentInput) (AssignmentDTO, error) {
	if err := s.authz.ValidateOrgAccess(ctx, repos, actor, input.OrgUnitID, iam.PermUsersAssign); err != nil {
		return AssignmentDTO{}, err
	}
	if _, err := repos.OrgUnitRepo().FindByID(ctx, actor.TenantID, input.OrgUnitID); err != nil {
		return AssignmentDTO{}, err
	}
	if _, err := repos.RoleRepo().FindByID(ctx, actor.TenantID, input.RoleID); err != nil {
		return AssignmentDTO{}, err
	}
	if _, err := repos.UserRepo().FindByID(ctx, actor.TenantID, input.UserID); err != nil {
		return AssignmentDTO{}, err
	}

	a, err := iam.NewOrgAssignment(actor.TenantID, actor.UserID, input.UserID, input.OrgUnitID, input.RoleID,
		iam.ScopeType(input.ScopeType), input.CustomOrgUnitIDs)
	if err != nil {
		return AssignmentDTO{}, err
	}
	for _, unitID := range a.CustomOrgUnitIDs {
		if err := s.requireCustomUnit(ctx, repos, actor, unitID); err != nil {
			return AssignmentDTO{}, err
		}
	}

	exists, err := repos.AssignmentRepo().Exists(ctx, actor.TenantID, input.UserID, input.OrgUnitID)
	if err != nil {
		return AssignmentDTO{}, err
	}
	if exists {
		return AssignmentDTO{}, shared.Errorf(shared.CodeAlreadyExists,
			"assignment already exists for user %s and org unit %s", input.UserID, input.OrgUnitID)
	}

	if err := repos.AssignmentRepo().Save(ctx, a); err != nil {
		return AssignmentDTO{}, err
	}
	dto := ToAssignmentDTO(a)
	if err := core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityAssignment, a.ID, nil, dto); err != nil {
		return AssignmentDTO{}, err
	}
	return dto, nil
}

// Update changes the role and/or scope type of an assignment
func (s *AssignmentService) Update(ctx context.Context, actor core.Actor, id uuid.UUID, input UpdateAssignmentInput) (*AssignmentDTO, error) {
	var dto AssignmentDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		a, err := repos.AssignmentRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if err := s.authz.ValidateOrgAccess(ctx, repos, actor, a.OrgUnitID, iam.PermUsersAssign); err != nil {
			return err
		}
		before := ToAssignmentDTO(a)

		if input.RoleID != nil {
			if _, err := repos.RoleRepo().FindByID(ctx, actor.TenantID, *input.RoleID); err != nil {
				return err
			}
			a.RoleID = *input.RoleID
			a.Touch()
		}
		if input.ScopeType != nil {
			if err := a.ChangeScope(iam.ScopeType(*input.ScopeType)); err != nil {
				return err
			}
		}

		if err := repos.AssignmentRepo().Save(ctx, a); err != nil {
			return err
		}
		dto = ToAssignmentDTO(a)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityAssignment, a.ID, before, dto)
	})
	if err != nil {
		return nil, err
	}
	s.authz.Invalidate(ctx, actor.TenantID)
	return &dto, nil
}

// Delete removes an assignment and its custom units
func (s *AssignmentService) Delete(ctx context.Context, actor core.Actor, id uuid.UUID) error {
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		a, err := repos.AssignmentRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if err := s.authz.ValidateOrgAccess(ctx, repos, actor, a.OrgUnitID, iam.PermUsersAssign); err != nil {
			return err
		}
		if err := repos.AssignmentRepo().Delete(ctx, actor.TenantID, id); err != nil {
			return err
		}
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionDelete, entityAssignment, id, ToAssignmentDTO(a), nil)
	})
	if err != nil {
		return err
	}
	s.authz.Invalidate(ctx, actor.TenantID)
	return nil
}

// AddCustomUnit extends a custom_set assignment with another org unit
func (s *AssignmentService) AddCustomUnit(ctx context.Context, actor core.Actor, id, orgUnitID uuid.UUID) (*AssignmentDTO, error) {
	var dto AssignmentDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermUsersAssign); err != nil {
			return err
		}
		a, err := repos.AssignmentRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if a.ScopeType != iam.ScopeCustomSet {
			return shared.NewDomainError(shared.CodeInvalidState,
				"can only add custom units to assignments with custom_set scope")
		}
		if err := s.requireCustomUnit(ctx, repos, actor, orgUnitID); err != nil {
			return err
		}
		if err := a.AddCustomUnit(orgUnitID); err != nil {
			return err
		}
		if err := repos.AssignmentRepo().Save(ctx, a); err != nil {
			return err
		}
		dto = ToAssignmentDTO(a)
		after := map[string]string{"org_unit_id": orgUnitID.String()}
		return core.RecordAudit(ctx, repos, actor, auditActionAddCustomUnit, entityAssignment, a.ID, nil, after)
	})
	if err != nil {
		return nil, err
	}
	s.authz.Invalidate(ctx, actor.TenantID)
	return &dto, nil
}

// RemoveCustomUnit drops an org unit from a custom_set assignment
func (s *AssignmentService) RemoveCustomUnit(ctx context.Context, actor core.Actor, id, orgUnitID uuid.UUID) error {
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermUsersAssign); err != nil {
			return err
		}
		a, err := repos.AssignmentRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if err := a.RemoveCustomUnit(orgUnitID); err != nil {
			return err
		}
		if err := repos.AssignmentRepo().Save(ctx, a); err != nil {
			return err
		}
		before := map[string]string{"org_unit_id": orgUnitID.String()}
		return core.RecordAudit(ctx, repos, actor, auditActionRemoveCustomUnit, entityAssignment, a.ID, before, nil)
	})
	if err != nil {
		return err
	}
	s.authz.Invalidate(ctx, actor.TenantID)
	return nil
}

// requireCustomUnit checks that the unit exists and that the actor can reach it
func (s *AssignmentService) requireCustomUnit(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, orgUnitID uuid.UUID) error {
	if _, err := repos.OrgUnitRepo().FindByID(ctx, actor.TenantID, orgUnitID); err != nil {
		return err
	}
	return s.authz.RequireOrgAccess(ctx, repos, actor, orgUnitID)
}
