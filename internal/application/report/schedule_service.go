package report

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/notification"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/report"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const entitySchedule = "report_schedules"

// ScheduleService manages report schedules and runs the due ones
type ScheduleService struct {
	txScope core.TransactionScope
	authz   *appiam.Authorizer
	exports *ExportService
	logger  *zap.Logger
	now     func() time.Time
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(txScope core.TransactionScope, authz *appiam.Authorizer, exports *ExportService, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{txScope: txScope, authz: authz, exports: exports, logger: logger, now: time.Now}
}

// Create schedules a visible template for periodic delivery
func (s *ScheduleService) Create(ctx context.Context, actor core.Actor, params report.ScheduleParams) (*ScheduleDTO, error) {
	var dto ScheduleDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermReportsSchedules); err != nil {
			return err
		}
		t, err := visibleTemplate(ctx, repos, s.authz, actor, params.TemplateID)
		if err != nil {
			return err
		}
		if _, err := applyOverrides(t.QueryDefinition, params.QueryOverrides); err != nil {
			return err
		}
		sched, err := report.NewSchedule(actor.TenantID, actor.UserID, params, s.now())
		if err != nil {
			return err
		}
		if err := repos.ScheduleRepo().Save(ctx, sched); err != nil {
			return err
		}
		dto = ToScheduleDTO(sched)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entitySchedule, sched.ID, nil, dto)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Report schedule created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("schedule_id", dto.ID.String()),
		zap.String("frequency", dto.Frequency),
		zap.Time("next_run_at", dto.NextRunAt))
	return &dto, nil
}

// List returns the actor's schedules
func (s *ScheduleService) List(ctx context.Context, actor core.Actor) ([]ScheduleDTO, error) {
	var out []ScheduleDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		list, err := repos.ScheduleRepo().FindByUser(ctx, actor.TenantID, actor.UserID)
		if err != nil {
			return err
		}
		out = make([]ScheduleDTO, 0, len(list))
		for i := range list {
			out = append(out, ToScheduleDTO(&list[i]))
		}
		return nil
	})
	return out, err
}

// Delete removes one of the actor's schedules
func (s *ScheduleService) Delete(ctx context.Context, actor core.Actor, id uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		sched, err := repos.ScheduleRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if sched.UserID != actor.UserID {
			return shared.NotFound("report schedule", id)
		}
		if err := repos.ScheduleRepo().Delete(ctx, actor.TenantID, id); err != nil {
			return err
		}
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionDelete, entitySchedule, id, ToScheduleDTO(sched), nil)
	})
}

// RunDue runs up to limit due schedules and returns how many ran. Each run
// exports the template and queues an email per recipient; a failed run
// deactivates its schedule.
func (s *ScheduleService) RunDue(ctx context.Context, limit int) (int, error) {
	now := s.now()
	var due []report.Schedule
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		var err error
		due, err = repos.ScheduleRepo().FindDue(ctx, now, limit)
		if err != nil {
			return err
		}
		// claim: push the next run forward so other runners skip these rows
		for i := range due {
			claimed := due[i]
			claimed.NextRunAt = claimed.NextRun(now)
			if err := repos.ScheduleRepo().Save(ctx, &claimed); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("claim due schedules: %w", err)
	}

	for i := range due {
		if ctx.Err() != nil {
			return i, ctx.Err()
		}
		s.run(ctx, &due[i], now)
	}
	return len(due), nil
}

func (s *ScheduleService) run(ctx context.Context, sched *report.Schedule, now time.Time) {
	log := s.logger.With(
		zap.String("tenant_id", sched.TenantID.String()),
		zap.String("schedule_id", sched.ID.String()))

	var (
		job      *report.ExportJob
		template *report.Template
	)
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		var err error
		template, err = repos.TemplateRepo().FindByID(ctx, sched.TenantID, sched.TemplateID)
		if err != nil {
			return err
		}
		def, err := applyOverrides(template.QueryDefinition, sched.QueryOverrides)
		if err != nil {
			return err
		}
		job, err = report.NewExportJob(sched.TenantID, sched.UserID, sched.Format, def, &template.ID)
		if err != nil {
			return err
		}
		return repos.ExportRepo().Save(ctx, job)
	})

	var key string
	if err == nil {
		key, err = s.exports.render(ctx, job)
		if err != nil {
			if ferr := s.exports.fail(context.WithoutCancel(ctx), job.TenantID, job.ID, err.Error()); ferr != nil {
				log.Error("Failed to record export failure", zap.Error(ferr))
			}
		}
	}
	var url string
	if err == nil {
		url, _, err = s.exports.storage.GenerateDownloadURL(ctx, key, 0)
	}

	runErr := err
	err = s.txScope.Execute(context.WithoutCancel(ctx), func(repos core.TransactionalRepositories) error {
		stored, err := repos.ScheduleRepo().FindByID(ctx, sched.TenantID, sched.ID)
		if err != nil {
			return err
		}
		stored.RecordRun(now, runErr)
		if err := repos.ScheduleRepo().Save(ctx, stored); err != nil {
			return err
		}
		if runErr != nil {
			return nil
		}
		for _, to := range stored.Recipients {
			n := notification.NewOutboxNotification(sched.TenantID, notification.TypeScheduledReport, map[string]any{
				"to":            to,
				"schedule_id":   sched.ID.String(),
				"template_name": template.Name,
				"export_id":     job.ID.String(),
				"format":        string(job.Format),
				"download_url":  url,
			})
			if err := repos.OutboxRepo().Save(ctx, n); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to record schedule run", zap.Error(err))
		return
	}
	if runErr != nil {
		log.Warn("Scheduled report failed, schedule deactivated", zap.Error(runErr))
		return
	}
	log.Info("Scheduled report sent", zap.Int("recipients", len(sched.Recipients)))
}

// applyOverrides overlays top-level keys of overrides onto def. Filters are
// merged key by key rather than replaced.
func applyOverrides(def report.QueryDefinition, overrides map[string]any) (report.QueryDefinition, error) {
	if len(overrides) == 0 {
		return def.Normalize()
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return def, err
	}
	var merged map[string]any
	if err := json.Unmarshal(raw, &merged); err != nil {
		return def, err
	}
	for k, v := range overrides {
		if k == "filters" {
			extra, ok := v.(map[string]any)
			if !ok {
				return def, shared.NewDomainError(shared.CodeInvalidInput, "query_overrides.filters must be an object")
			}
			filters, _ := merged["filters"].(map[string]any)
			if filters == nil {
				filters = map[string]any{}
			}
			maps.Copy(filters, extra)
			merged["filters"] = filters
			continue
		}
		merged[k] = v
	}
	raw, err = json.Marshal(merged)
	if err != nil {
		return def, err
	}
	var out report.QueryDefinition
	if err := json.Unmarshal(raw, &out); err != nil {
		return def, shared.Errorf(shared.CodeInvalidInput, "invalid query_overrides: %v", err)
	}
	return out.Normalize()
}
