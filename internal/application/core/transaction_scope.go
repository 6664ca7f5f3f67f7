package core

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/cells"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/identity"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/imports"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/notification"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/report"
)

// TransactionScope runs a unit of work against a single database transaction.
// Every mutating request executes inside one scope so that the business change
// and its audit row are committed or rolled back together.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	// IAM
	OrgUnitRepo() iam.OrgUnitRepository
	RoleRepo() iam.RoleRepository
	PermissionRepo() iam.PermissionRepository
	AssignmentRepo() iam.AssignmentRepository
	AuditLogRepo() iam.AuditLogRepository
	UserRepo() identity.UserRepository

	// Registry
	PersonRepo() registry.PersonRepository
	FirstTimerRepo() registry.FirstTimerRepository
	ServiceRepo() registry.ServiceRepository
	DepartmentRepo() registry.DepartmentRepository

	// Cells
	CellRepo() cells.CellRepository
	CellReportRepo() cells.ReportRepository

	// Finance
	FundRepo() finance.FundRepository
	PartnershipArmRepo() finance.PartnershipArmRepository
	BatchRepo() finance.BatchRepository
	EntryRepo() finance.EntryRepository
	PartnershipRepo() finance.PartnershipRepository

	// Imports, reports and delivery
	ImportJobRepo() imports.JobRepository
	ExportRepo() report.ExportRepository
	TemplateRepo() report.TemplateRepository
	ScheduleRepo() report.ScheduleRepository
	OutboxRepo() notification.OutboxRepository

	// ReportQueries runs report definitions inside the transaction
	ReportQueries() report.QueryExecutor
}
