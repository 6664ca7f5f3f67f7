package finance

import (
	"context"
	"errors"
	"strings"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const entityEntry = "finance_entries"

// EntryService manages individual finance entries
type EntryService struct {
	txScope core.TransactionScope
	authz   *appiam.Authorizer
	logger  *zap.Logger
}

// NewEntryService creates a new EntryService
func NewEntryService(txScope core.TransactionScope, authz *appiam.Authorizer, logger *zap.Logger) *EntryService {
	return &EntryService{txScope: txScope, authz: authz, logger: logger}
}

// List returns entries in the units the actor can reach, newest transaction first
func (s *EntryService) List(ctx context.Context, actor core.Actor, f EntryListFilter) (shared.Paginated[EntryDTO], error) {
	pf := shared.Filter{Page: f.Page, PageSize: f.PageSize}.Normalize()
	filter := finance.EntryFilter{
		OrgUnitID:        f.OrgUnitID,
		BatchID:          f.BatchID,
		ServiceID:        f.ServiceID,
		FundID:           f.FundID,
		PartnershipArmID: f.PartnershipArmID,
		PersonID:         f.PersonID,
		From:             f.From,
		To:               f.To,
		Page:             pf.Page,
		PageSize:         pf.PageSize,
	}
	if f.VerifiedStatus != "" {
		status := finance.VerifiedStatus(f.VerifiedStatus)
		if !status.IsValid() {
			return shared.Paginated[EntryDTO]{}, shared.Errorf(shared.CodeInvalidInput, "invalid verified status %q", f.VerifiedStatus)
		}
		filter.VerifiedStatus = status
	}

	var result shared.Paginated[EntryDTO]
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		units, err := s.authz.AccessibleOrgUnits(ctx, repos, actor.TenantID, actor.UserID)
		if err != nil {
			return err
		}
		filter.OrgUnitIDs = units
		entries, total, err := repos.EntryRepo().FindAll(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		dtos := make([]EntryDTO, 0, len(entries))
		for i := range entries {
			dtos = append(dtos, ToEntryDTO(&entries[i]))
		}
		result = shared.NewPaginated(dtos, total, pf.Page, pf.PageSize)
		return nil
	})
	return result, err
}

// Get returns an entry the actor can reach
func (s *EntryService) Get(ctx context.Context, actor core.Actor, id uuid.UUID) (*EntryDTO, error) {
	var dto EntryDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		entry, err := repos.EntryRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if err := s.authz.RequireOrgAccess(ctx, repos, actor, entry.OrgUnitID); err != nil {
			return err
		}
		dto = ToEntryDTO(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Create records a draft entry
func (s *EntryService) Create(ctx context.Context, actor core.Actor, input CreateEntryInput) (*EntryDTO, error) {
	var dto EntryDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		entry, err := s.CreateInTx(ctx, repos, actor, input)
		if err != nil {
			return err
		}
		dto = ToEntryDTO(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Finance entry created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("entry_id", dto.ID.String()),
		zap.String("amount", dto.Amount.StringFixed(2)))
	return &dto, nil
}

// CreateInTx validates and stores an entry inside the caller's transaction.
// Other modules use it to post entries generated from their own records.
func (s *EntryService) CreateInTx(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, input CreateEntryInput) (*finance.FinanceEntry, error) {
	if err := s.authz.ValidateOrgAccess(ctx, repos, actor, input.OrgUnitID, iam.PermEntriesCreate); err != nil {
		return nil, err
	}
	if _, err := repos.FundRepo().FindByID(ctx, actor.TenantID, input.FundID); err != nil {
		return nil, err
	}
	if input.PartnershipArmID != nil {
		if _, err := repos.PartnershipArmRepo().FindByID(ctx, actor.TenantID, *input.PartnershipArmID); err != nil {
			return nil, err
		}
	}
	if input.PersonID != nil {
		if _, err := repos.PersonRepo().FindByID(ctx, actor.TenantID, *input.PersonID); err != nil {
			return nil, err
		}
	}
	if input.CellID != nil {
		if _, err := repos.CellRepo().FindByID(ctx, actor.TenantID, *input.CellID); err != nil {
			return nil, err
		}
	}
	if input.BatchID != nil {
		batch, err := repos.BatchRepo().FindByIDForUpdate(ctx, actor.TenantID, *input.BatchID)
		if err != nil {
			return nil, err
		}
		if batch.IsLocked() {
			return nil, shared.NewDomainError(shared.CodeInvalidState, "cannot add entry to locked batch")
		}
		if batch.OrgUnitID != input.OrgUnitID {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "batch belongs to a different org unit")
		}
	}
	if input.ServiceID != nil {
		if _, err := repos.ServiceRepo().FindByID(ctx, actor.TenantID, *input.ServiceID); err != nil {
			return nil, err
		}
	}

	method := finance.PaymentMethod(strings.ToLower(strings.TrimSpace(input.Method)))
	if method == "" {
		method = finance.MethodCash
	}
	entry, err := finance.NewFinanceEntry(actor.TenantID, actor.UserID, finance.EntryParams{
		OrgUnitID:         input.OrgUnitID,
		BatchID:           input.BatchID,
		ServiceID:         input.ServiceID,
		FundID:            input.FundID,
		PartnershipArmID:  input.PartnershipArmID,
		Amount:            input.Amount,
		Currency:          input.Currency,
		Method:            method,
		PersonID:          input.PersonID,
		CellID:            input.CellID,
		ExternalGiverName: input.ExternalGiverName,
		Reference:         input.Reference,
		Comment:           input.Comment,
		SourceType:        finance.SourceType(input.SourceType),
		SourceID:          input.SourceID,
		TransactionDate:   input.TransactionDate,
	})
	if err != nil {
		return nil, err
	}
	if err := repos.EntryRepo().Save(ctx, entry); err != nil {
		return nil, err
	}
	after := map[string]any{
		"id":          entry.ID,
		"org_unit_id": entry.OrgUnitID,
		"fund_id":     entry.FundID,
		"amount":      entry.Amount.StringFixed(2),
	}
	if err := core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityEntry, entry.ID, nil, after); err != nil {
		return nil, err
	}
	return entry, nil
}

// Update changes an entry that is neither locked nor in a locked batch
func (s *EntryService) Update(ctx context.Context, actor core.Actor, id uuid.UUID, input UpdateEntryInput) (*EntryDTO, error) {
	var dto EntryDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		entry, err := s.loadModifiable(ctx, repos, actor, id, iam.PermEntriesUpdate)
		if err != nil {
			return err
		}
		before := entrySnapshot(entry)

		if input.FundID != nil {
			if _, err := repos.FundRepo().FindByID(ctx, actor.TenantID, *input.FundID); err != nil {
				return err
			}
			entry.FundID = *input.FundID
		}
		if input.PartnershipArmID != nil {
			if _, err := repos.PartnershipArmRepo().FindByID(ctx, actor.TenantID, *input.PartnershipArmID); err != nil {
				return err
			}
			entry.PartnershipArmID = input.PartnershipArmID
		}
		if input.PersonID != nil {
			if _, err := repos.PersonRepo().FindByID(ctx, actor.TenantID, *input.PersonID); err != nil {
				return err
			}
			entry.PersonID = input.PersonID
		}
		if input.Amount != nil {
			if err := entry.ChangeAmount(*input.Amount); err != nil {
				return err
			}
		}
		if input.Method != nil {
			method := finance.PaymentMethod(strings.ToLower(strings.TrimSpace(*input.Method)))
			if !method.IsValid() {
				return shared.Errorf(shared.CodeInvalidInput, "invalid payment method %q", *input.Method)
			}
			entry.Method = method
		}
		if input.ExternalGiverName != nil {
			entry.ExternalGiverName = nonEmpty(*input.ExternalGiverName)
		}
		if input.Reference != nil {
			entry.Reference = nonEmpty(*input.Reference)
		}
		if input.Comment != nil {
			entry.Comment = input.Comment
		}
		if input.TransactionDate != nil {
			if input.TransactionDate.IsZero() {
				return shared.NewDomainError(shared.CodeInvalidInput, "transaction date is required")
			}
			entry.TransactionDate = *input.TransactionDate
		}
		if !entry.HasGiver() {
			return shared.NewDomainError(shared.CodeInvalidInput,
				"either person_id, cell_id, or external_giver_name must be provided")
		}
		entry.Touch()

		if err := repos.EntryRepo().Save(ctx, entry); err != nil {
			return err
		}
		dto = ToEntryDTO(entry)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityEntry, entry.ID, before, entrySnapshot(entry))
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Delete removes an entry that is neither locked nor in a locked batch
func (s *EntryService) Delete(ctx context.Context, actor core.Actor, id uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		entry, err := s.loadModifiable(ctx, repos, actor, id, iam.PermEntriesDelete)
		if err != nil {
			return err
		}
		if err := repos.EntryRepo().Delete(ctx, actor.TenantID, id); err != nil {
			return err
		}
		before := map[string]any{
			"id":      entry.ID,
			"fund_id": entry.FundID,
			"amount":  entry.Amount.StringFixed(2),
		}
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionDelete, entityEntry, id, before, nil)
	})
}

// Verify sets the entry's verified status. Locked entries cannot change and
// locked is reachable only through the batch.
func (s *EntryService) Verify(ctx context.Context, actor core.Actor, id uuid.UUID, status string) (*EntryDTO, error) {
	var dto EntryDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		entry, err := repos.EntryRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if err := entry.EnsureEditable(); err != nil {
			return err
		}
		if err := s.authz.ValidateOrgAccess(ctx, repos, actor, entry.OrgUnitID, iam.PermFinanceVerify); err != nil {
			return err
		}
		before := map[string]any{"verified_status": entry.VerifiedStatus}
		if err := entry.SetVerifiedStatus(finance.VerifiedStatus(status)); err != nil {
			return err
		}
		if err := repos.EntryRepo().Save(ctx, entry); err != nil {
			return err
		}
		dto = ToEntryDTO(entry)
		after := map[string]any{"verified_status": entry.VerifiedStatus}
		return core.RecordAudit(ctx, repos, actor, AuditActionVerify, entityEntry, entry.ID, before, after)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Reconcile marks an entry reconciled
func (s *EntryService) Reconcile(ctx context.Context, actor core.Actor, id uuid.UUID) (*EntryDTO, error) {
	return s.Verify(ctx, actor, id, string(finance.VerifiedStatusReconciled))
}

// loadModifiable reads an entry and checks that neither it nor its batch is
// locked before checking permission and org access
func (s *EntryService) loadModifiable(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, id uuid.UUID, code string) (*finance.FinanceEntry, error) {
	entry, err := repos.EntryRepo().FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := EnsureEntryModifiable(ctx, repos, entry); err != nil {
		return nil, err
	}
	if err := s.authz.ValidateOrgAccess(ctx, repos, actor, entry.OrgUnitID, code); err != nil {
		return nil, err
	}
	return entry, nil
}

// EnsureEntryModifiable fails when the entry is locked or sits in a locked batch
func EnsureEntryModifiable(ctx context.Context, repos core.TransactionalRepositories, entry *finance.FinanceEntry) error {
	if err := entry.EnsureEditable(); err != nil {
		return err
	}
	if entry.BatchID == nil {
		return nil
	}
	batch, err := repos.BatchRepo().FindByID(ctx, entry.TenantID, *entry.BatchID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if batch.IsLocked() {
		return shared.NewDomainError(shared.CodeInvalidState, "cannot modify entry in a locked batch")
	}
	return nil
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
