package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/report"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const entityExport = "export_jobs"

// Renderer writes a query result to a file
type Renderer interface {
	Render(format report.ExportFormat, result *report.QueryResult, progress func(written int)) ([]byte, error)
}

// ExportService creates export jobs and renders them in the background
type ExportService struct {
	txScope  core.TransactionScope
	authz    *appiam.Authorizer
	queries  *QueryService
	storage  core.ObjectStorage
	queue    core.JobQueue
	renderer Renderer
	metrics  core.Metrics
	logger   *zap.Logger
}

// NewExportService creates a new ExportService
func NewExportService(
	txScope core.TransactionScope,
	authz *appiam.Authorizer,
	queries *QueryService,
	storage core.ObjectStorage,
	queue core.JobQueue,
	renderer Renderer,
	metrics core.Metrics,
	logger *zap.Logger,
) *ExportService {
	if metrics == nil {
		metrics = core.NopMetrics{}
	}
	return &ExportService{
		txScope:  txScope,
		authz:    authz,
		queries:  queries,
		storage:  storage,
		queue:    queue,
		renderer: renderer,
		metrics:  metrics,
		logger:   logger,
	}
}

// CreateExport stores a pending export and queues it. A template supplies the
// definition when none is given.
func (s *ExportService) CreateExport(ctx context.Context, actor core.Actor, input ExportInput) (*ExportDTO, error) {
	var dto ExportDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermReportsExport); err != nil {
			return err
		}
		def, err := s.definition(ctx, repos, actor, input)
		if err != nil {
			return err
		}
		job, err := report.NewExportJob(actor.TenantID, actor.UserID, report.ExportFormat(input.Format), def, input.TemplateID)
		if err != nil {
			return err
		}
		if err := repos.ExportRepo().Save(ctx, job); err != nil {
			return err
		}
		dto = ToExportDTO(job)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityExport, job.ID, nil, dto)
	})
	if err != nil {
		return nil, err
	}

	payload := map[string]string{"tenant_id": actor.TenantID.String(), "export_id": dto.ID.String()}
	if err := s.queue.Enqueue(ctx, core.QueueExports, core.JobProcessExport, payload); err != nil {
		ferr := s.fail(ctx, actor.TenantID, dto.ID, "could not queue the export: "+err.Error())
		return nil, errors.Join(fmt.Errorf("queue export: %w", err), ferr)
	}
	s.logger.Info("Export queued",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("export_id", dto.ID.String()),
		zap.String("entity_type", string(dto.Query.EntityType)),
		zap.String("format", dto.Format))
	return &dto, nil
}

func (s *ExportService) definition(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, input ExportInput) (report.QueryDefinition, error) {
	if input.Definition != nil {
		return *input.Definition, nil
	}
	if input.TemplateID == nil {
		return report.QueryDefinition{}, shared.NewDomainError(shared.CodeInvalidInput, "query_definition or template_id is required")
	}
	t, err := visibleTemplate(ctx, repos, s.authz, actor, *input.TemplateID)
	if err != nil {
		return report.QueryDefinition{}, err
	}
	return t.QueryDefinition, nil
}

// GetExport returns one of the actor's exports with a download URL once complete
func (s *ExportService) GetExport(ctx context.Context, actor core.Actor, id uuid.UUID) (*ExportDTO, error) {
	var job *report.ExportJob
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		var err error
		job, err = repos.ExportRepo().FindForUser(ctx, actor.TenantID, actor.UserID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	dto := ToExportDTO(job)
	if job.Status == report.ExportCompleted && job.FilePath != nil {
		url, expires, err := s.storage.GenerateDownloadURL(ctx, *job.FilePath, 0)
		if err != nil {
			return nil, err
		}
		dto.FileURL = url
		dto.URLExpiresAt = &expires
	}
	return &dto, nil
}

// HandleJob is the queue handler for core.JobProcessExport
func (s *ExportService) HandleJob(ctx context.Context, payload map[string]string) error {
	tenantID, err := uuid.Parse(payload["tenant_id"])
	if err != nil {
		return fmt.Errorf("invalid tenant_id in export payload: %w", err)
	}
	exportID, err := uuid.Parse(payload["export_id"])
	if err != nil {
		return fmt.Errorf("invalid export_id in export payload: %w", err)
	}
	return s.Process(ctx, tenantID, exportID)
}

// Process renders a pending export as its requester. Jobs that already
// started are ignored.
func (s *ExportService) Process(ctx context.Context, tenantID, id uuid.UUID) error {
	var job *report.ExportJob
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		var err error
		job, err = repos.ExportRepo().FindByID(ctx, tenantID, id)
		return err
	})
	if err != nil {
		return err
	}
	if job.Status != report.ExportPending {
		s.logger.Info("Export is not pending, skipping",
			zap.String("export_id", id.String()),
			zap.String("status", string(job.Status)))
		return nil
	}
	if _, err := s.render(ctx, job); err != nil {
		s.logger.Warn("Export failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("export_id", id.String()),
			zap.Error(err))
		if ferr := s.fail(context.WithoutCancel(ctx), tenantID, id, err.Error()); ferr != nil {
			return errors.Join(err, ferr)
		}
		// the failure is recorded on the job; redelivery would not help
		return nil
	}
	return nil
}

// render runs the job's query, uploads the file and completes the job
func (s *ExportService) render(ctx context.Context, job *report.ExportJob) (string, error) {
	actor := core.NewActor(job.TenantID, job.UserID)
	started := time.Now()

	var result *report.QueryResult
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		var err error
		result, err = s.queries.run(ctx, repos, actor, job.QueryDefinition, nil)
		if err != nil {
			return err
		}
		stored, err := repos.ExportRepo().FindByID(ctx, job.TenantID, job.ID)
		if err != nil {
			return err
		}
		stored.Begin(len(result.Rows), time.Now())
		return repos.ExportRepo().Save(ctx, stored)
	})
	if err != nil {
		return "", err
	}

	data, err := s.renderer.Render(job.Format, result, func(written int) {
		if err := s.update(ctx, job.TenantID, job.ID, func(j *report.ExportJob) { j.Progress(written) }); err != nil {
			s.logger.Warn("Failed to save export progress", zap.String("export_id", job.ID.String()), zap.Error(err))
		}
	})
	if err != nil {
		return "", fmt.Errorf("render export: %w", err)
	}

	key := fmt.Sprintf("exports/%s/%s/%s_%s%s", job.TenantID, job.ID,
		job.QueryDefinition.EntityType, started.UTC().Format("20060102_150405"), job.Format.Extension())
	if err := s.storage.Upload(ctx, key, data, job.Format.ContentType()); err != nil {
		return "", fmt.Errorf("upload export: %w", err)
	}
	size := int64(len(data))
	if err := s.update(ctx, job.TenantID, job.ID, func(j *report.ExportJob) { j.Complete(key, size, time.Now()) }); err != nil {
		return "", err
	}

	s.metrics.ExportFinished(string(job.Format), string(report.ExportCompleted))
	s.logger.Info("Export completed",
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("export_id", job.ID.String()),
		zap.Int("rows", len(result.Rows)),
		zap.Int64("size", size),
		zap.Duration("duration", time.Since(started)))
	return key, nil
}

func (s *ExportService) fail(ctx context.Context, tenantID, id uuid.UUID, msg string) error {
	var format string
	err := s.update(ctx, tenantID, id, func(j *report.ExportJob) {
		format = string(j.Format)
		j.Fail(msg, time.Now())
	})
	s.metrics.ExportFinished(format, string(report.ExportFailed))
	return err
}

func (s *ExportService) update(ctx context.Context, tenantID, id uuid.UUID, change func(*report.ExportJob)) error {
	return s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		job, err := repos.ExportRepo().FindByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		change(job)
		return repos.ExportRepo().Save(ctx, job)
	})
}
