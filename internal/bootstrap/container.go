// Package bootstrap wires configuration, infrastructure and application
// services for the API server and the zonectl worker.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	appcells "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/cells"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appfinance "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/finance"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/identity"
	appimports "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/imports"
	appnotification "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/notification"
	appregistry "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/registry"
	appreport "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/report"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/auth"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/cache"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/config"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/export"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/notification"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/persistence"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/queue"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/scheduler"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/storage"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	permissionCacheTTL = 5 * time.Minute
	exportProgressStep = 500
	jobDedupePrefix    = "zone:jobs:"
)

// Version is stamped at build time with -ldflags "-X .../internal/bootstrap.Version=..."
var Version = "dev"

// Services are the application services shared by every entry point
type Services struct {
	OrgUnits    *appiam.OrgUnitService
	Roles       *appiam.RoleService
	Permissions *appiam.PermissionService
	Assignments *appiam.AssignmentService
	Audit       *appiam.AuditService
	Seeder      *appiam.PermissionSeeder

	Auth  *identity.AuthService
	Users *identity.UserService

	People      *appregistry.PersonService
	FirstTimers *appregistry.FirstTimerService
	Attendance  *appregistry.AttendanceService
	Departments *appregistry.DepartmentService

	Cells       *appcells.CellService
	CellReports *appcells.ReportService

	Lookups      *appfinance.LookupService
	Batches      *appfinance.BatchService
	Entries      *appfinance.EntryService
	Partnerships *appfinance.PartnershipService

	Imports   *appimports.ImportService
	Queries   *appreport.QueryService
	Exports   *appreport.ExportService
	Templates *appreport.TemplateService
	Schedules *appreport.ScheduleService
}

// Container owns the long-lived connections. Close releases them.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	TenantID uuid.UUID

	DB      *persistence.Database
	Redis   *redis.Client
	Metrics *telemetry.Metrics
	Tracer  *telemetry.TracerProvider
	Storage core.ObjectStorage
	Broker  queue.Broker
	Dedupe  cache.IdempotencyStore

	Services Services
}

// New connects to Postgres, Redis and object storage and builds every service.
// Tracing is installed before the first query so that database spans join
// the request traces.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (c *Container, err error) {
	tenantID, err := cfg.App.Tenant()
	if err != nil {
		return nil, err
	}
	c = &Container{Config: cfg, Logger: log, TenantID: tenantID, Metrics: telemetry.NewMetrics()}
	defer func() {
		if err != nil {
			_ = c.Close(context.Background())
		}
	}()

	c.Tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    Version,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}

	c.DB, err = persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level, cfg.Telemetry.DBSlowQueryThresh)
	if err != nil {
		return nil, err
	}
	if err = telemetry.RegisterDBTracing(c.DB.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log); err != nil {
		return nil, fmt.Errorf("database tracing: %w", err)
	}
	sqlDB, err := c.DB.DB.DB()
	if err != nil {
		return nil, err
	}
	if err = c.Metrics.RegisterDB(sqlDB, cfg.Database.DBName); err != nil {
		return nil, fmt.Errorf("database metrics: %w", err)
	}

	c.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err = c.Redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	s3, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err = s3.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	c.Storage = s3
	c.Broker = queue.NewRedisBroker(c.Redis)
	c.Dedupe = cache.NewRedisIdempotencyStore(c.Redis, jobDedupePrefix)

	c.Services = c.buildServices()
	return c, nil
}

func (c *Container) buildServices() Services {
	cfg, log := c.Config, c.Logger
	scope := persistence.NewGormTransactionScope(c.DB.DB)
	authz := appiam.NewAuthorizer(cache.NewRedisPermissionCache(c.Redis, permissionCacheTTL), log)
	hasher := auth.NewPasswordHasher(0)
	blacklist := auth.NewRedisTokenBlacklist(c.Redis)

	var s Services
	s.OrgUnits = appiam.NewOrgUnitService(scope, authz, log)
	s.Roles = appiam.NewRoleService(scope, authz, log)
	s.Permissions = appiam.NewPermissionService(scope)
	s.Assignments = appiam.NewAssignmentService(scope, authz, log)
	s.Audit = appiam.NewAuditService(scope, authz)
	s.Seeder = appiam.NewPermissionSeeder(scope, authz, log)

	s.Auth = identity.NewAuthService(scope, authz, auth.NewJWTService(cfg.JWT), hasher, blacklist, c.TenantID, log)
	s.Users = identity.NewUserService(scope, authz, s.Assignments, hasher, blacklist, cfg.JWT.RefreshTokenExpiration, log)

	s.People = appregistry.NewPersonService(scope, authz, log)
	s.FirstTimers = appregistry.NewFirstTimerService(scope, authz, log)
	s.Attendance = appregistry.NewAttendanceService(scope, authz, log)
	s.Departments = appregistry.NewDepartmentService(scope, authz, log)

	s.Lookups = appfinance.NewLookupService(scope, authz, log)
	s.Batches = appfinance.NewBatchService(scope, authz, c.Metrics, log)
	s.Entries = appfinance.NewEntryService(scope, authz, log)
	s.Partnerships = appfinance.NewPartnershipService(scope, authz, log)

	s.Cells = appcells.NewCellService(scope, authz, log)
	s.CellReports = appcells.NewReportService(scope, authz, s.Entries, log)

	s.Imports = appimports.NewImportService(scope, authz, c.Storage, c.Broker, appimports.Targets{
		People:      s.People,
		FirstTimers: s.FirstTimers,
		Attendance:  s.Attendance,
		Cells:       s.Cells,
		Reports:     s.CellReports,
		Entries:     s.Entries,
	}, c.Metrics, appimports.Config{
		MaxFileSize: cfg.Imports.MaxFileSize,
		MaxRows:     cfg.Imports.MaxRows,
		PreviewRows: cfg.Imports.PreviewRows,
	}, log)

	s.Queries = appreport.NewQueryService(scope, authz, log)
	s.Exports = appreport.NewExportService(scope, authz, s.Queries, c.Storage, c.Broker,
		export.NewFileRenderer(exportProgressStep), c.Metrics, log)
	s.Templates = appreport.NewTemplateService(scope, authz, log)
	s.Schedules = appreport.NewScheduleService(scope, authz, s.Exports, log)
	return s
}

// NewWorker returns the queue worker with the import and export jobs registered
func (c *Container) NewWorker() *queue.Worker {
	q := c.Config.Queue
	w := queue.NewWorker(c.Broker, c.Dedupe, c.Metrics, queue.WorkerConfig{
		Concurrency:  q.Concurrency,
		PollInterval: q.PollInterval,
		MaxAttempts:  q.MaxAttempts,
		RetryDelay:   q.RetryDelay,
	}, c.Logger.Named("queue"))
	w.Handle(core.JobProcessImport, c.Services.Imports.HandleJob)
	w.Handle(core.JobProcessExport, c.Services.Exports.HandleJob)
	return w
}

// NewNotificationProcessor returns the outbox processor delivering queued emails
func (c *Container) NewNotificationProcessor() *appnotification.Processor {
	n := c.Config.Notification
	return appnotification.NewProcessor(
		persistence.NewGormTransactionScope(c.DB.DB),
		notification.NewLogSender(c.Logger.Named("mail")),
		c.Metrics,
		appnotification.ProcessorConfig{
			BatchSize:    n.BatchSize,
			PollInterval: n.PollInterval,
			MaxRetries:   n.MaxRetries,
			BaseBackoff:  n.BaseBackoff,
		},
		c.Logger.Named("outbox"),
	)
}

// NewScheduler returns the periodic task runner for due report schedules
func (c *Container) NewScheduler() *scheduler.Scheduler {
	sc := c.Config.Scheduler
	return scheduler.New(scheduler.Config{
		Enabled:      sc.Enabled,
		PollInterval: sc.PollInterval,
		JobTimeout:   sc.JobTimeout,
	}, c.Logger.Named("scheduler"),
		scheduler.NewReportScheduleTask(c.Services.Schedules, sc.BatchSize, c.Logger),
	)
}

// Close releases every connection opened by New
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.Tracer != nil {
		errs = append(errs, c.Tracer.Shutdown(ctx))
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}
