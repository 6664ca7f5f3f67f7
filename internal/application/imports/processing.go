package importapp

import (
	"context"
	"fmt"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/imports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandleJob is the queue handler for core.JobProcessImport
func (s *ImportService) HandleJob(ctx context.Context, payload map[string]string) error {
	tenantID, err := uuid.Parse(payload["tenant_id"])
	if err != nil {
		return fmt.Errorf("invalid tenant_id in import payload: %w", err)
	}
	jobID, err := uuid.Parse(payload["job_id"])
	if err != nil {
		return fmt.Errorf("invalid job_id in import payload: %w", err)
	}
	return s.Process(ctx, tenantID, jobID)
}

// Process imports every row of a started job as its uploader. Bad rows are
// recorded and skipped; the job fails only when the file itself cannot be read.
// Jobs that are not processing are ignored, so redelivered messages are harmless.
func (s *ImportService) Process(ctx context.Context, tenantID, jobID uuid.UUID) error {
	var job *imports.Job
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		var err error
		job, err = repos.ImportJobRepo().FindByID(ctx, tenantID, jobID)
		if err != nil {
			return err
		}
		if job.Status != imports.StatusProcessing {
			return nil
		}
		job.ProcessedRows, job.ImportedCount, job.ErrorCount, job.SkippedCount = 0, 0, 0, 0
		job.ErrorFilePath = nil
		return repos.ImportJobRepo().DeleteErrors(ctx, job.ID)
	})
	if err != nil {
		return err
	}
	if job.Status != imports.StatusProcessing {
		s.logger.Info("Import is not processing, skipping",
			zap.String("job_id", jobID.String()),
			zap.String("status", string(job.Status)))
		return nil
	}

	log := s.logger.With(
		zap.String("tenant_id", tenantID.String()),
		zap.String("job_id", jobID.String()),
		zap.String("entity_type", string(job.EntityType)))
	started := time.Now()

	table, err := s.readTable(ctx, job)
	if err != nil {
		log.Warn("Import file could not be read", zap.Error(err))
		return s.fail(ctx, job, err.Error())
	}
	schema, _ := SchemaFor(job.EntityType)
	plan := s.targets.planner(job.EntityType)
	actor := core.NewActor(job.TenantID, job.UserID)
	job.TotalRows = len(table.Rows)

	var pending []imports.RowError
	for i, row := range table.Rows {
		p, errs, err := s.checkRow(ctx, job, schema, plan, row)
		if err != nil {
			return s.abort(ctx, job, pending, err)
		}
		switch {
		case p == nil:
			job.RecordRow(imports.RowFailed)
		case p.apply == nil:
			job.RecordRow(imports.RowSkipped)
		case job.DryRun:
			job.RecordRow(imports.RowImported)
		default:
			if err := p.apply(ctx, actor); err != nil {
				if ctx.Err() != nil {
					return s.abort(ctx, job, pending, ctx.Err())
				}
				errs = append(errs, s.rowError(job, row.Number, err))
				job.RecordRow(imports.RowFailed)
			} else {
				job.RecordRow(imports.RowImported)
			}
		}
		pending = append(pending, errs...)

		if (i+1)%progressInterval == 0 {
			if err := s.saveProgress(ctx, job, pending); err != nil {
				return err
			}
			pending = nil
		}
	}

	if err := s.saveProgress(ctx, job, pending); err != nil {
		return err
	}
	if job.ErrorCount > 0 || job.SkippedCount > 0 {
		if err := s.attachErrorReport(ctx, job); err != nil {
			log.Warn("Failed to store import error report", zap.Error(err))
		}
	}
	if _, err := s.finish(ctx, job.TenantID, job.ID, func(stored *imports.Job) {
		stored.ErrorFilePath = job.ErrorFilePath
		stored.Complete(time.Now())
	}); err != nil {
		return err
	}

	s.metrics.ImportFinished(string(job.EntityType), string(imports.StatusCompleted), job.ProcessedRows)
	log.Info("Import completed",
		zap.Int("rows", job.ProcessedRows),
		zap.Int("imported", job.ImportedCount),
		zap.Int("errors", job.ErrorCount),
		zap.Int("skipped", job.SkippedCount),
		zap.Bool("dry_run", job.DryRun),
		zap.Duration("duration", time.Since(started)))
	return nil
}

// saveProgress writes counters and buffered row errors
func (s *ImportService) saveProgress(ctx context.Context, job *imports.Job, errs []imports.RowError) error {
	return s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if len(errs) > 0 {
			if err := repos.ImportJobRepo().AddErrors(ctx, errs); err != nil {
				return err
			}
		}
		stored, err := repos.ImportJobRepo().FindByID(ctx, job.TenantID, job.ID)
		if err != nil {
			return err
		}
		stored.TotalRows = job.TotalRows
		stored.ProcessedRows = job.ProcessedRows
		stored.ImportedCount = job.ImportedCount
		stored.ErrorCount = job.ErrorCount
		stored.SkippedCount = job.SkippedCount
		stored.ErrorFilePath = nil
		stored.Touch()
		return repos.ImportJobRepo().Save(ctx, stored)
	})
}

func (s *ImportService) attachErrorReport(ctx context.Context, job *imports.Job) error {
	var errs []imports.RowError
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		var err error
		errs, err = repos.ImportJobRepo().FindErrors(ctx, job.ID, 0)
		return err
	})
	if err != nil || len(errs) == 0 {
		return err
	}
	key, err := s.storeErrorReport(ctx, job, errs)
	if err != nil {
		return err
	}
	job.ErrorFilePath = &key
	return nil
}

func (s *ImportService) fail(ctx context.Context, job *imports.Job, reason string) error {
	_, err := s.finish(ctx, job.TenantID, job.ID, func(stored *imports.Job) {
		stored.Fail(reason, time.Now())
	})
	s.metrics.ImportFinished(string(job.EntityType), string(imports.StatusFailed), job.ProcessedRows)
	return err
}

// abort stores what was done so far and fails the job
func (s *ImportService) abort(ctx context.Context, job *imports.Job, pending []imports.RowError, cause error) error {
	// The run's context may be cancelled; the bookkeeping must still land.
	bg := context.WithoutCancel(ctx)
	if err := s.saveProgress(bg, job, pending); err != nil {
		s.logger.Error("Failed to save import progress", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
	if err := s.fail(bg, job, "import interrupted: "+cause.Error()); err != nil {
		return err
	}
	return cause
}
