package cells

import (
	"context"
	"errors"
	"strings"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appfinance "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/finance"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/cells"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	entityReport = "cell_reports"
	entityEntry  = "finance_entries"

	// AuditActionApprove is recorded when a report is reviewed or approved
	AuditActionApprove = "approve"

	// OfferingFundName is the fund cell offerings are posted to
	OfferingFundName = "Offering"
)

// ReportService manages cell reports and posts their offerings to finance
type ReportService struct {
	txScope core.TransactionScope
	authz   *appiam.Authorizer
	entries *appfinance.EntryService
	logger  *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(txScope core.TransactionScope, authz *appiam.Authorizer, entries *appfinance.EntryService, logger *zap.Logger) *ReportService {
	return &ReportService{txScope: txScope, authz: authz, entries: entries, logger: logger}
}

// List returns reports of cells in the actor's org units, newest first
func (s *ReportService) List(ctx context.Context, actor core.Actor, f ReportListFilter) (shared.Paginated[ReportDTO], error) {
	page := shared.Filter{Page: f.Page, PageSize: f.PageSize}.Normalize()
	filter := cells.ReportFilter{
		CellID:   f.CellID,
		From:     f.From,
		To:       f.To,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	if f.Status != "" {
		filter.Status = cells.ReportStatus(strings.ToLower(f.Status))
	}

	var result shared.Paginated[ReportDTO]
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		units, err := s.authz.AccessibleOrgUnits(ctx, repos, actor.TenantID, actor.UserID)
		if err != nil {
			return err
		}
		filter.OrgUnitIDs = units
		reports, total, err := repos.CellReportRepo().FindAll(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		items := make([]ReportDTO, 0, len(reports))
		for i := range reports {
			items = append(items, ToReportDTO(&reports[i]))
		}
		result = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	return result, err
}

// Get returns a report with the id of its offering entry, if any
func (s *ReportService) Get(ctx context.Context, actor core.Actor, id uuid.UUID) (*ReportDTO, error) {
	var dto ReportDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		report, _, err := s.load(ctx, repos, actor, id, "")
		if err != nil {
			return err
		}
		entry, err := offeringEntry(ctx, repos, report)
		if err != nil {
			return err
		}
		dto = withEntry(report, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Create submits a report; a cell has at most one report per date
func (s *ReportService) Create(ctx context.Context, actor core.Actor, cellID uuid.UUID, input ReportInput) (*ReportDTO, error) {
	var dto ReportDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		cell, err := loadCell(ctx, repos, s.authz, actor, cellID, iam.PermCellReportsCreate)
		if err != nil {
			return err
		}
		report, err := cells.NewCellReport(actor.TenantID, actor.UserID, cell.ID, input.details())
		if err != nil {
			return err
		}
		if err := ensureOneReportPerDate(ctx, repos, report); err != nil {
			return err
		}
		if err := repos.CellReportRepo().Save(ctx, report); err != nil {
			return err
		}
		if err := core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityReport, report.ID, nil, ToReportDTO(report)); err != nil {
			return err
		}
		entry, err := s.syncOffering(ctx, repos, actor, cell, report)
		if err != nil {
			return err
		}
		dto = withEntry(report, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Cell report submitted",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("cell_id", cellID.String()),
		zap.String("report_id", dto.ID.String()))
	return &dto, nil
}

// Update replaces a report's attributes and keeps its offering entry in step
func (s *ReportService) Update(ctx context.Context, actor core.Actor, id uuid.UUID, input ReportInput) (*ReportDTO, error) {
	var dto ReportDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		report, cell, err := s.load(ctx, repos, actor, id, iam.PermCellReportsUpdate)
		if err != nil {
			return err
		}
		before := ToReportDTO(report)
		if err := report.Apply(input.details()); err != nil {
			return err
		}
		if err := ensureOneReportPerDate(ctx, repos, report); err != nil {
			return err
		}
		if err := repos.CellReportRepo().Save(ctx, report); err != nil {
			return err
		}
		if err := core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityReport, report.ID, before, ToReportDTO(report)); err != nil {
			return err
		}
		entry, err := s.syncOffering(ctx, repos, actor, cell, report)
		if err != nil {
			return err
		}
		dto = withEntry(report, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Approve marks a report reviewed or approved and makes sure its offering is posted
func (s *ReportService) Approve(ctx context.Context, actor core.Actor, id uuid.UUID, status string) (*ReportDTO, error) {
	var dto ReportDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		report, cell, err := s.load(ctx, repos, actor, id, iam.PermCellReportsApprove)
		if err != nil {
			return err
		}
		before := ToReportDTO(report)
		if err := report.Approve(cells.ReportStatus(strings.ToLower(strings.TrimSpace(status)))); err != nil {
			return err
		}
		if err := repos.CellReportRepo().Save(ctx, report); err != nil {
			return err
		}
		if err := core.RecordAudit(ctx, repos, actor, AuditActionApprove, entityReport, report.ID, before, ToReportDTO(report)); err != nil {
			return err
		}
		entry, err := s.syncOffering(ctx, repos, actor, cell, report)
		if err != nil {
			return err
		}
		dto = withEntry(report, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Cell report approved",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("report_id", id.String()),
		zap.String("status", dto.Status))
	return &dto, nil
}

// Delete removes a report and its unlocked offering entry
func (s *ReportService) Delete(ctx context.Context, actor core.Actor, id uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		report, _, err := s.load(ctx, repos, actor, id, iam.PermCellReportsDelete)
		if err != nil {
			return err
		}
		entry, err := offeringEntry(ctx, repos, report)
		if err != nil {
			return err
		}
		if entry != nil {
			if err := s.removeEntry(ctx, repos, actor, entry); err != nil {
				return err
			}
		}
		if err := repos.CellReportRepo().Delete(ctx, actor.TenantID, report.ID); err != nil {
			return err
		}
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionDelete, entityReport, report.ID, ToReportDTO(report), nil)
	})
}

// syncOffering brings the report's offering entry in line with its total.
// Locked entries are left alone. A missing Offering fund or a missing
// finance permission skips posting without failing the report.
func (s *ReportService) syncOffering(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, cell *cells.Cell, report *cells.CellReport) (*finance.FinanceEntry, error) {
	entry, err := offeringEntry(ctx, repos, report)
	if err != nil {
		return nil, err
	}

	if entry != nil {
		if err := appfinance.EnsureEntryModifiable(ctx, repos, entry); err != nil {
			if errors.Is(err, shared.ErrInvalidState) {
				return entry, nil
			}
			return nil, err
		}
		if !report.HasOfferings() {
			return nil, s.removeEntry(ctx, repos, actor, entry)
		}
		if entry.Amount.Equal(report.OfferingsTotal) && entry.TransactionDate.Equal(report.ReportDate) {
			return entry, nil
		}
		before := map[string]any{"amount": entry.Amount.StringFixed(2), "transaction_date": entry.TransactionDate}
		if err := entry.ChangeAmount(report.OfferingsTotal); err != nil {
			return nil, err
		}
		entry.TransactionDate = report.ReportDate
		if err := repos.EntryRepo().Save(ctx, entry); err != nil {
			return nil, err
		}
		after := map[string]any{"amount": entry.Amount.StringFixed(2), "transaction_date": entry.TransactionDate}
		return entry, core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityEntry, entry.ID, before, after)
	}

	if !report.HasOfferings() {
		return nil, nil
	}
	fund, err := repos.FundRepo().FindActiveByName(ctx, actor.TenantID, OfferingFundName)
	if errors.Is(err, shared.ErrNotFound) {
		s.logger.Warn("No active Offering fund, cell offering not posted",
			zap.String("tenant_id", actor.TenantID.String()),
			zap.String("report_id", report.ID.String()))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	allowed, err := s.authz.HasPermission(ctx, repos, actor, iam.PermEntriesCreate)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.logger.Info("Actor cannot create finance entries, cell offering not posted",
			zap.String("user_id", actor.UserID.String()),
			zap.String("report_id", report.ID.String()))
		return nil, nil
	}

	comment := "Offering from cell " + cell.Name
	return s.entries.CreateInTx(ctx, repos, actor, appfinance.CreateEntryInput{
		OrgUnitID:       cell.OrgUnitID,
		FundID:          fund.ID,
		Amount:          report.OfferingsTotal,
		Method:          string(finance.MethodCash),
		CellID:          &cell.ID,
		Comment:         &comment,
		TransactionDate: report.ReportDate,
		SourceType:      string(finance.SourceCellReport),
		SourceID:        &report.ID,
	})
}

func (s *ReportService) removeEntry(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, entry *finance.FinanceEntry) error {
	if err := appfinance.EnsureEntryModifiable(ctx, repos, entry); err != nil {
		if errors.Is(err, shared.ErrInvalidState) {
			return nil
		}
		return err
	}
	if err := repos.EntryRepo().Delete(ctx, actor.TenantID, entry.ID); err != nil {
		return err
	}
	return core.RecordAudit(ctx, repos, actor, iam.AuditActionDelete, entityEntry, entry.ID, map[string]any{
		"id":          entry.ID,
		"amount":      entry.Amount.StringFixed(2),
		"source_type": entry.SourceType,
		"source_id":   entry.SourceID,
	}, nil)
}

func (s *ReportService) load(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, id uuid.UUID, code string) (*cells.CellReport, *cells.Cell, error) {
	report, err := repos.CellReportRepo().FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, nil, err
	}
	cell, err := loadCell(ctx, repos, s.authz, actor, report.CellID, code)
	if err != nil {
		return nil, nil, err
	}
	return report, cell, nil
}

func ensureOneReportPerDate(ctx context.Context, repos core.TransactionalRepositories, report *cells.CellReport) error {
	exists, err := repos.CellReportRepo().ExistsForDate(ctx, report.TenantID, report.CellID, report.ReportDate, report.ID)
	if err != nil {
		return err
	}
	if exists {
		return shared.Errorf(shared.CodeAlreadyExists, "cell already has a report for %s", report.ReportDate.Format("2006-01-02"))
	}
	return nil
}

// offeringEntry returns nil when the report has no posted offering
func offeringEntry(ctx context.Context, repos core.TransactionalRepositories, report *cells.CellReport) (*finance.FinanceEntry, error) {
	entry, err := repos.EntryRepo().FindBySource(ctx, report.TenantID, finance.SourceCellReport, report.ID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return entry, err
}

func withEntry(report *cells.CellReport, entry *finance.FinanceEntry) ReportDTO {
	dto := ToReportDTO(report)
	if entry != nil {
		dto.FinanceEntryID = &entry.ID
	}
	return dto
}
