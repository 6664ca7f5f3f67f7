package persistence

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/cells"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/identity"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/imports"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/notification"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/report"
	"gorm.io/gorm"
)

// GormTransactionScope implements core.TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn in one transaction; an error from fn rolls everything back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos core.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories hands out repositories bound to one transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) OrgUnitRepo() iam.OrgUnitRepository {
	return NewGormOrgUnitRepository(r.tx)
}

func (r *gormTransactionalRepositories) RoleRepo() iam.RoleRepository {
	return NewGormRoleRepository(r.tx)
}

func (r *gormTransactionalRepositories) PermissionRepo() iam.PermissionRepository {
	return NewGormPermissionRepository(r.tx)
}

func (r *gormTransactionalRepositories) AssignmentRepo() iam.AssignmentRepository {
	return NewGormAssignmentRepository(r.tx)
}

func (r *gormTransactionalRepositories) AuditLogRepo() iam.AuditLogRepository {
	return NewGormAuditLogRepository(r.tx)
}

func (r *gormTransactionalRepositories) UserRepo() identity.UserRepository {
	return NewGormUserRepository(r.tx)
}

func (r *gormTransactionalRepositories) PersonRepo() registry.PersonRepository {
	return NewGormPersonRepository(r.tx)
}

func (r *gormTransactionalRepositories) FirstTimerRepo() registry.FirstTimerRepository {
	return NewGormFirstTimerRepository(r.tx)
}

func (r *gormTransactionalRepositories) ServiceRepo() registry.ServiceRepository {
	return NewGormServiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) DepartmentRepo() registry.DepartmentRepository {
	return NewGormDepartmentRepository(r.tx)
}

func (r *gormTransactionalRepositories) CellRepo() cells.CellRepository {
	return NewGormCellRepository(r.tx)
}

func (r *gormTransactionalRepositories) CellReportRepo() cells.ReportRepository {
	return NewGormCellReportRepository(r.tx)
}

func (r *gormTransactionalRepositories) FundRepo() finance.FundRepository {
	return NewGormFundRepository(r.tx)
}

func (r *gormTransactionalRepositories) PartnershipArmRepo() finance.PartnershipArmRepository {
	return NewGormPartnershipArmRepository(r.tx)
}

func (r *gormTransactionalRepositories) BatchRepo() finance.BatchRepository {
	return NewGormBatchRepository(r.tx)
}

func (r *gormTransactionalRepositories) EntryRepo() finance.EntryRepository {
	return NewGormEntryRepository(r.tx)
}

func (r *gormTransactionalRepositories) PartnershipRepo() finance.PartnershipRepository {
	return NewGormPartnershipRepository(r.tx)
}

func (r *gormTransactionalRepositories) ImportJobRepo() imports.JobRepository {
	return NewGormImportJobRepository(r.tx)
}

func (r *gormTransactionalRepositories) ExportRepo() report.ExportRepository {
	return NewGormExportRepository(r.tx)
}

func (r *gormTransactionalRepositories) TemplateRepo() report.TemplateRepository {
	return NewGormTemplateRepository(r.tx)
}

func (r *gormTransactionalRepositories) ScheduleRepo() report.ScheduleRepository {
	return NewGormScheduleRepository(r.tx)
}

func (r *gormTransactionalRepositories) OutboxRepo() notification.OutboxRepository {
	return NewGormOutboxRepository(r.tx)
}

func (r *gormTransactionalRepositories) ReportQueries() report.QueryExecutor {
	return NewGormQueryExecutor(r.tx)
}

var (
	_ core.TransactionScope          = (*GormTransactionScope)(nil)
	_ core.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
