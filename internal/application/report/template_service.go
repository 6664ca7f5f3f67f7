package report

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/report"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const entityTemplate = "report_templates"

// TemplateService manages saved report definitions
type TemplateService struct {
	txScope core.TransactionScope
	authz   *appiam.Authorizer
	logger  *zap.Logger
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(txScope core.TransactionScope, authz *appiam.Authorizer, logger *zap.Logger) *TemplateService {
	return &TemplateService{txScope: txScope, authz: authz, logger: logger}
}

// Create saves a template owned by the actor
func (s *TemplateService) Create(ctx context.Context, actor core.Actor, input TemplateInput) (*TemplateDTO, error) {
	var dto TemplateDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermReportsTemplates); err != nil {
			return err
		}
		if err := s.checkSharing(ctx, repos, actor, input.SharedWithOrgUnits); err != nil {
			return err
		}
		t, err := report.NewTemplate(actor.TenantID, actor.UserID, input.Name, input.Description,
			input.QueryDefinition, input.VisualizationConfig, input.IsShared, input.SharedWithOrgUnits)
		if err != nil {
			return err
		}
		if err := repos.TemplateRepo().Save(ctx, t); err != nil {
			return err
		}
		dto = ToTemplateDTO(t)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityTemplate, t.ID, nil, dto)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Report template created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("template_id", dto.ID.String()),
		zap.String("name", dto.Name))
	return &dto, nil
}

// List returns the actor's templates and those shared with their org units
func (s *TemplateService) List(ctx context.Context, actor core.Actor) ([]TemplateDTO, error) {
	var out []TemplateDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		units, err := s.authz.AccessibleOrgUnits(ctx, repos, actor.TenantID, actor.UserID)
		if err != nil {
			return err
		}
		list, err := repos.TemplateRepo().FindVisible(ctx, actor.TenantID, actor.UserID)
		if err != nil {
			return err
		}
		out = make([]TemplateDTO, 0, len(list))
		for i := range list {
			if list[i].VisibleTo(actor.UserID, units) {
				out = append(out, ToTemplateDTO(&list[i]))
			}
		}
		return nil
	})
	return out, err
}

// Get returns a template visible to the actor
func (s *TemplateService) Get(ctx context.Context, actor core.Actor, id uuid.UUID) (*TemplateDTO, error) {
	var dto TemplateDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		t, err := visibleTemplate(ctx, repos, s.authz, actor, id)
		if err != nil {
			return err
		}
		dto = ToTemplateDTO(t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Update replaces a template. Only its owner may change it.
func (s *TemplateService) Update(ctx context.Context, actor core.Actor, id uuid.UUID, input TemplateInput) (*TemplateDTO, error) {
	var dto TemplateDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		t, err := ownedTemplate(ctx, repos, s.authz, actor, id)
		if err != nil {
			return err
		}
		if err := s.checkSharing(ctx, repos, actor, input.SharedWithOrgUnits); err != nil {
			return err
		}
		before := ToTemplateDTO(t)
		if err := t.Update(input.Name, input.Description, input.QueryDefinition,
			input.VisualizationConfig, input.IsShared, input.SharedWithOrgUnits); err != nil {
			return err
		}
		if err := repos.TemplateRepo().Save(ctx, t); err != nil {
			return err
		}
		dto = ToTemplateDTO(t)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityTemplate, t.ID, before, dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Delete removes one of the actor's templates
func (s *TemplateService) Delete(ctx context.Context, actor core.Actor, id uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		t, err := ownedTemplate(ctx, repos, s.authz, actor, id)
		if err != nil {
			return err
		}
		before := ToTemplateDTO(t)
		if err := repos.TemplateRepo().Delete(ctx, actor.TenantID, id); err != nil {
			return err
		}
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionDelete, entityTemplate, id, before, nil)
	})
}

// checkSharing rejects sharing with units outside the actor's reach
func (s *TemplateService) checkSharing(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, units []uuid.UUID) error {
	for _, u := range units {
		if err := s.authz.RequireOrgAccess(ctx, repos, actor, u); err != nil {
			return err
		}
	}
	return nil
}

// visibleTemplate loads a template and reports templates the actor may not
// read as not found
func visibleTemplate(ctx context.Context, repos core.TransactionalRepositories, authz *appiam.Authorizer, actor core.Actor, id uuid.UUID) (*report.Template, error) {
	t, err := repos.TemplateRepo().FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if t.UserID == actor.UserID {
		return t, nil
	}
	units, err := authz.AccessibleOrgUnits(ctx, repos, actor.TenantID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !t.VisibleTo(actor.UserID, units) {
		return nil, shared.NotFound("report template", id)
	}
	return t, nil
}

func ownedTemplate(ctx context.Context, repos core.TransactionalRepositories, authz *appiam.Authorizer, actor core.Actor, id uuid.UUID) (*report.Template, error) {
	t, err := visibleTemplate(ctx, repos, authz, actor, id)
	if err != nil {
		return nil, err
	}
	if t.UserID != actor.UserID {
		return nil, shared.NewDomainError(shared.CodeForbidden, "only the owner can change a report template")
	}
	return t, nil
}
