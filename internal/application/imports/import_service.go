package importapp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/imports"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	fileimport "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/import"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	entityImportJob = "import_jobs"

	// AuditActionStart is recorded when an import is queued for processing
	AuditActionStart = "start"

	progressInterval = 50
	errorSampleSize  = 100
)

// Config bounds uploaded files
type Config struct {
	MaxFileSize int64
	MaxRows     int
	PreviewRows int
}

func (c Config) withDefaults() Config {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 10 << 20
	}
	if c.PreviewRows <= 0 {
		c.PreviewRows = 10
	}
	return c
}

// ImportService takes uploaded spreadsheets through preview, mapping,
// validation and background processing
type ImportService struct {
	txScope core.TransactionScope
	authz   *appiam.Authorizer
	storage core.ObjectStorage
	queue   core.JobQueue
	targets Targets
	metrics core.Metrics
	cfg     Config
	logger  *zap.Logger
}

// NewImportService creates a new ImportService
func NewImportService(
	txScope core.TransactionScope,
	authz *appiam.Authorizer,
	storage core.ObjectStorage,
	queue core.JobQueue,
	targets Targets,
	metrics core.Metrics,
	cfg Config,
	logger *zap.Logger,
) *ImportService {
	if metrics == nil {
		metrics = core.NopMetrics{}
	}
	return &ImportService{
		txScope: txScope,
		authz:   authz,
		storage: storage,
		queue:   queue,
		targets: targets,
		metrics: metrics,
		cfg:     cfg.withDefaults(),
		logger:  logger,
	}
}

// Upload stores the file and creates a pending job for it
func (s *ImportService) Upload(ctx context.Context, actor core.Actor, input UploadInput) (*JobDTO, error) {
	entity := imports.EntityType(strings.ToLower(strings.TrimSpace(input.EntityType)))
	if !entity.IsValid() {
		return nil, shared.Errorf(shared.CodeInvalidInput, "unsupported entity type %q", input.EntityType)
	}
	if len(input.Data) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "file is empty")
	}
	if int64(len(input.Data)) > s.cfg.MaxFileSize {
		return nil, shared.Errorf(shared.CodeInvalidInput, "file exceeds the maximum size of %d bytes", s.cfg.MaxFileSize)
	}
	format, err := imports.DetectFormat(input.FileName, head(input.Data, 8))
	if err != nil {
		return nil, err
	}

	var dto JobDTO
	err = s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermImportsCreate); err != nil {
			return err
		}
		if input.DefaultOrgUnitID != nil {
			if err := s.authz.RequireOrgAccess(ctx, repos, actor, *input.DefaultOrgUnitID); err != nil {
				return err
			}
		}
		key := fmt.Sprintf("imports/%s/%s/%s", actor.TenantID, uuid.New(), safeFileName(input.FileName))
		job, err := imports.NewJob(actor.TenantID, actor.UserID, entity, input.FileName, format, key,
			int64(len(input.Data)), imports.Mode(strings.ToLower(input.Mode)), input.DefaultOrgUnitID, input.DryRun)
		if err != nil {
			return err
		}
		if err := s.storage.Upload(ctx, key, input.Data, contentType(format)); err != nil {
			return fmt.Errorf("store import file: %w", err)
		}
		if err := repos.ImportJobRepo().Save(ctx, job); err != nil {
			return err
		}
		dto = ToJobDTO(job)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityImportJob, job.ID, nil, dto)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Import file uploaded",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("job_id", dto.ID.String()),
		zap.String("entity_type", dto.EntityType),
		zap.Int64("bytes", dto.FileSize))
	return &dto, nil
}

// Preview reads the file headers and first rows and suggests a column mapping.
// An existing mapping is kept.
func (s *ImportService) Preview(ctx context.Context, actor core.Actor, id uuid.UUID) (*PreviewDTO, error) {
	job, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	table, err := s.readTable(ctx, job)
	if err != nil {
		return nil, err
	}
	schema, _ := SchemaFor(job.EntityType)
	suggested, suggestions := schema.SuggestMapping(table.Headers)

	var dto PreviewDTO
	err = s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		job, err := s.loadOwned(ctx, repos, actor, id)
		if err != nil {
			return err
		}
		if job.Status == imports.StatusPending || job.Status == imports.StatusPreviewed {
			job.MarkPreviewed(len(table.Rows), suggested)
			if err := repos.ImportJobRepo().Save(ctx, job); err != nil {
				return err
			}
		}
		dto.Job = ToJobDTO(job)
		return nil
	})
	if err != nil {
		return nil, err
	}

	limit := min(s.cfg.PreviewRows, len(table.Rows))
	dto.Headers = table.Headers
	dto.Rows = make([]map[string]string, limit)
	for i := range limit {
		dto.Rows[i] = table.Rows[i].Values
	}
	dto.Mapping = suggested
	dto.Suggestions = suggestions
	dto.Fields = toFieldDTOs(schema)
	return &dto, nil
}

// UpdateMapping replaces the column mapping after checking it against the entity's fields
func (s *ImportService) UpdateMapping(ctx context.Context, actor core.Actor, id uuid.UUID, mapping map[string]string) (*JobDTO, error) {
	var dto JobDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		job, err := s.loadOwned(ctx, repos, actor, id)
		if err != nil {
			return err
		}
		schema, _ := SchemaFor(job.EntityType)
		if err := schema.CheckMapping(mapping); err != nil {
			return shared.NewDomainError(shared.CodeInvalidInput, err.Error())
		}
		before := job.MappingConfig
		if err := job.SetMapping(cleanMapping(mapping)); err != nil {
			return err
		}
		if err := repos.ImportJobRepo().Save(ctx, job); err != nil {
			return err
		}
		dto = ToJobDTO(job)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityImportJob, job.ID,
			map[string]any{"mapping": before}, map[string]any{"mapping": job.MappingConfig})
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Validate dry-runs every row against the mapping: field checks and reference
// lookups, without writing anything. Found problems replace the job's stored errors.
func (s *ImportService) Validate(ctx context.Context, actor core.Actor, id uuid.UUID) (*ValidationDTO, error) {
	job, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	schema, _ := SchemaFor(job.EntityType)
	if err := schema.CheckMapping(job.MappingConfig); err != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, err.Error())
	}
	table, err := s.readTable(ctx, job)
	if err != nil {
		return nil, err
	}

	plan := s.targets.planner(job.EntityType)
	result := ValidationDTO{TotalRows: len(table.Rows), ErrorsByType: map[string]int{}}
	var rowErrs []imports.RowError
	for _, row := range table.Rows {
		_, errs, err := s.checkRow(ctx, job, schema, plan, row)
		if err != nil {
			return nil, err
		}
		if len(errs) == 0 {
			result.ValidRows++
			continue
		}
		result.InvalidRows++
		for _, e := range errs {
			result.ErrorsByType[string(e.ErrorType)]++
		}
		rowErrs = append(rowErrs, errs...)
	}
	result.ErrorCount = len(rowErrs)
	sample := rowErrs
	if len(sample) > errorSampleSize {
		sample = sample[:errorSampleSize]
		result.IsTruncated = true
	}
	result.Errors = toRowErrorDTOs(sample)

	err = s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		job, err := s.loadOwned(ctx, repos, actor, id)
		if err != nil {
			return err
		}
		if err := repos.ImportJobRepo().DeleteErrors(ctx, job.ID); err != nil {
			return err
		}
		if err := repos.ImportJobRepo().AddErrors(ctx, rowErrs); err != nil {
			return err
		}
		job.TotalRows = len(table.Rows)
		job.ErrorFilePath = nil
		return repos.ImportJobRepo().Save(ctx, job)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Start queues the job for background processing
func (s *ImportService) Start(ctx context.Context, actor core.Actor, id uuid.UUID) (*JobDTO, error) {
	var dto JobDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		job, err := s.loadOwned(ctx, repos, actor, id)
		if err != nil {
			return err
		}
		schema, _ := SchemaFor(job.EntityType)
		if len(job.MappingConfig) > 0 {
			if err := schema.CheckMapping(job.MappingConfig); err != nil {
				return shared.NewDomainError(shared.CodeInvalidInput, err.Error())
			}
		}
		if err := job.Start(time.Now()); err != nil {
			return err
		}
		if err := repos.ImportJobRepo().Save(ctx, job); err != nil {
			return err
		}
		dto = ToJobDTO(job)
		return core.RecordAudit(ctx, repos, actor, AuditActionStart, entityImportJob, job.ID, nil, dto)
	})
	if err != nil {
		return nil, err
	}

	payload := map[string]string{"tenant_id": actor.TenantID.String(), "job_id": id.String()}
	if err := s.queue.Enqueue(ctx, core.QueueImports, core.JobProcessImport, payload); err != nil {
		s.logger.Error("Failed to queue import", zap.String("job_id", id.String()), zap.Error(err))
		_, ferr := s.finish(ctx, actor.TenantID, id, func(job *imports.Job) {
			job.Fail("could not queue the import: "+err.Error(), time.Now())
		})
		return nil, errors.Join(fmt.Errorf("queue import: %w", err), ferr)
	}
	s.logger.Info("Import queued",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("job_id", id.String()))
	return &dto, nil
}

// Status returns the job with its progress counters
func (s *ImportService) Status(ctx context.Context, actor core.Actor, id uuid.UUID) (*JobDTO, error) {
	job, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	dto := ToJobDTO(job)
	return &dto, nil
}

// List returns the caller's jobs, or every job of the tenant for holders of imports.jobs.read
func (s *ImportService) List(ctx context.Context, actor core.Actor, f JobListFilter) (shared.Paginated[JobDTO], error) {
	var result shared.Paginated[JobDTO]
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		filter := shared.Filter{Page: f.Page, PageSize: f.PageSize}.Normalize()
		canReadAll, err := s.authz.HasPermission(ctx, repos, actor, iam.PermImportsRead)
		if err != nil {
			return err
		}
		if !canReadAll {
			filter = filter.With("user_id", actor.UserID)
		}
		if f.Status != "" {
			filter = filter.With("status", f.Status)
		}
		if f.EntityType != "" {
			filter = filter.With("entity_type", f.EntityType)
		}
		jobs, err := repos.ImportJobRepo().FindAll(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		total, err := repos.ImportJobRepo().Count(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		items := make([]JobDTO, len(jobs))
		for i := range jobs {
			items[i] = ToJobDTO(&jobs[i])
		}
		result = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	return result, err
}

// Errors returns up to limit stored row errors of a job
func (s *ImportService) Errors(ctx context.Context, actor core.Actor, id uuid.UUID, limit int) ([]RowErrorDTO, error) {
	var out []RowErrorDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		job, err := s.load(ctx, repos, actor, id)
		if err != nil {
			return err
		}
		errs, err := repos.ImportJobRepo().FindErrors(ctx, job.ID, limit)
		if err != nil {
			return err
		}
		out = toRowErrorDTOs(errs)
		return nil
	})
	return out, err
}

// ErrorReport returns a download link for the CSV of the job's row errors,
// rendering and storing it on first use
func (s *ImportService) ErrorReport(ctx context.Context, actor core.Actor, id uuid.UUID) (*ErrorReportDTO, error) {
	var (
		key   string
		count int
	)
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		job, err := s.load(ctx, repos, actor, id)
		if err != nil {
			return err
		}
		errs, err := repos.ImportJobRepo().FindErrors(ctx, job.ID, 0)
		if err != nil {
			return err
		}
		if len(errs) == 0 {
			return shared.NewDomainError(shared.CodeInvalidState, "import has no errors")
		}
		count = len(errs)
		if job.ErrorFilePath != nil {
			key = *job.ErrorFilePath
			return nil
		}
		key, err = s.storeErrorReport(ctx, job, errs)
		if err != nil {
			return err
		}
		job.ErrorFilePath = &key
		return repos.ImportJobRepo().Save(ctx, job)
	})
	if err != nil {
		return nil, err
	}
	url, expires, err := s.storage.GenerateDownloadURL(ctx, key, 0)
	if err != nil {
		return nil, err
	}
	return &ErrorReportDTO{
		FileName:    filepath.Base(key),
		DownloadURL: url,
		ExpiresAt:   expires,
		ErrorCount:  count,
	}, nil
}

func (s *ImportService) storeErrorReport(ctx context.Context, job *imports.Job, errs []imports.RowError) (string, error) {
	data, err := fileimport.WriteErrorReport(errs)
	if err != nil {
		return "", err
	}
	base := strings.TrimSuffix(safeFileName(job.FileName), filepath.Ext(job.FileName))
	key := fmt.Sprintf("imports/%s/%s/%s_errors.csv", job.TenantID, job.ID, base)
	if err := s.storage.Upload(ctx, key, data, "text/csv"); err != nil {
		return "", fmt.Errorf("store error report: %w", err)
	}
	return key, nil
}

// get loads a visible job in its own transaction
func (s *ImportService) get(ctx context.Context, actor core.Actor, id uuid.UUID) (*imports.Job, error) {
	var job *imports.Job
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		var err error
		job, err = s.load(ctx, repos, actor, id)
		return err
	})
	return job, err
}

func (s *ImportService) getOwned(ctx context.Context, actor core.Actor, id uuid.UUID) (*imports.Job, error) {
	var job *imports.Job
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		var err error
		job, err = s.loadOwned(ctx, repos, actor, id)
		return err
	})
	return job, err
}

// load returns a job the actor may see: their own, or any with imports.jobs.read.
// Other users' jobs are reported as missing.
func (s *ImportService) load(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, id uuid.UUID) (*imports.Job, error) {
	job, err := repos.ImportJobRepo().FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if job.UserID == actor.UserID {
		return job, nil
	}
	ok, err := s.authz.HasPermission(ctx, repos, actor, iam.PermImportsRead)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.NotFound("import job", id)
	}
	return job, nil
}

// loadOwned returns a job the actor uploaded; only the uploader may change it
func (s *ImportService) loadOwned(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, id uuid.UUID) (*imports.Job, error) {
	job, err := s.load(ctx, repos, actor, id)
	if err != nil {
		return nil, err
	}
	if job.UserID != actor.UserID {
		return nil, shared.NewDomainError(shared.CodeForbidden, "only the uploader can change an import")
	}
	if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermImportsCreate); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *ImportService) readTable(ctx context.Context, job *imports.Job) (*fileimport.Table, error) {
	data, err := s.storage.Download(ctx, job.FilePath)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	table, err := fileimport.Parse(job.FileFormat, data, s.cfg.MaxRows)
	if err != nil {
		return nil, shared.Errorf(shared.CodeInvalidInput, "cannot read %s: %v", job.FileName, err)
	}
	return table, nil
}

// checkRow validates one row and resolves its references. Row problems come
// back as row errors; the error return is reserved for failures that stop the run.
func (s *ImportService) checkRow(ctx context.Context, job *imports.Job, schema fileimport.Schema, plan planner, row fileimport.Row) (*rowPlan, []imports.RowError, error) {
	values := row.Mapped(job.MappingConfig)
	if fieldErrs := schema.ValidateRow(values); len(fieldErrs) > 0 {
		errs := make([]imports.RowError, len(fieldErrs))
		for i, fe := range fieldErrs {
			errs[i] = imports.NewRowError(job.ID, row.Number, columnFor(job.MappingConfig, fe.Field), fe.Type, fe.Message, fe.Value)
		}
		return nil, errs, nil
	}

	var p *rowPlan
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		var err error
		p, err = plan(ctx, resolver{repos: repos, tenantID: job.TenantID}, job, fields{schema: schema, raw: values})
		return err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, []imports.RowError{s.rowError(job, row.Number, err)}, nil
	}
	if p.duplicate != nil {
		return p, []imports.RowError{s.rowError(job, row.Number, p.duplicate)}, nil
	}
	return p, nil, nil
}

func (s *ImportService) rowError(job *imports.Job, rowNumber int, err error) imports.RowError {
	var (
		rf *rowFailure
		de *shared.DomainError
	)
	if !errors.As(err, &rf) && !errors.As(err, &de) {
		s.logger.Warn("Unexpected import row error",
			zap.String("job_id", job.ID.String()),
			zap.Int("row", rowNumber),
			zap.Error(err))
	}
	f := classify(err)
	return imports.NewRowError(job.ID, rowNumber, columnFor(job.MappingConfig, f.Field), f.Type, f.Message, f.Value)
}

// finish applies a terminal change to the job in its own transaction
func (s *ImportService) finish(ctx context.Context, tenantID, id uuid.UUID, change func(*imports.Job)) (*JobDTO, error) {
	var dto JobDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		job, err := repos.ImportJobRepo().FindByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		change(job)
		if err := repos.ImportJobRepo().Save(ctx, job); err != nil {
			return err
		}
		dto = ToJobDTO(job)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// columnFor finds the source column mapped to field, falling back to the field name
func columnFor(mapping map[string]string, field string) string {
	if field == "" {
		return ""
	}
	for column, target := range mapping {
		if target == field {
			return column
		}
	}
	return field
}

func cleanMapping(mapping map[string]string) map[string]string {
	out := make(map[string]string, len(mapping))
	for column, field := range mapping {
		if field = strings.TrimSpace(field); field != "" {
			out[column] = field
		}
	}
	return out
}

func safeFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if cleaned == "" || cleaned == "." {
		return "upload"
	}
	return cleaned
}

func contentType(format imports.FileFormat) string {
	if format == imports.FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

func head(data []byte, n int) []byte {
	if len(data) < n {
		return data
	}
	return data[:n]
}
