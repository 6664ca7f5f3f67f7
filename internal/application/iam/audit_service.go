package iam

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// AuditService reads the audit trail
type AuditService struct {
	txScope core.TransactionScope
	authz   *Authorizer
}

// NewAuditService creates a new AuditService
func NewAuditService(txScope core.TransactionScope, authz *Authorizer) *AuditService {
	return &AuditService{txScope: txScope, authz: authz}
}

// List returns audit rows newest first
func (s *AuditService) List(ctx context.Context, actor core.Actor, filter iam.AuditLogFilter) (shared.Paginated[AuditLogDTO], error) {
	norm := shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.Normalize()
	filter.Page, filter.PageSize = norm.Page, norm.PageSize

	var result shared.Paginated[AuditLogDTO]
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermAuditView); err != nil {
			return err
		}
		logs, total, err := repos.AuditLogRepo().FindAll(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		dtos := make([]AuditLogDTO, 0, len(logs))
		for i := range logs {
			dtos = append(dtos, ToAuditLogDTO(&logs[i]))
		}
		result = shared.NewPaginated(dtos, total, filter.Page, filter.PageSize)
		return nil
	})
	return result, err
}

// Get returns one audit row
func (s *AuditService) Get(ctx context.Context, actor core.Actor, id uuid.UUID) (*AuditLogDTO, error) {
	var dto AuditLogDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermAuditView); err != nil {
			return err
		}
		l, err := repos.AuditLogRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		dto = ToAuditLogDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}
