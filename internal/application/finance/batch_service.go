package finance

import (
	"context"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const entityBatch = "batches"

// Batch audit actions beyond create/update/delete
const (
	AuditActionVerify = "verify"
	AuditActionLock   = "lock"
	AuditActionUnlock = "unlock"
)

// BatchService runs the batch workflow: draft, dual verification, lock and unlock
type BatchService struct {
	txScope core.TransactionScope
	authz   *appiam.Authorizer
	metrics core.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewBatchService creates a new BatchService. A nil metrics discards observations.
func NewBatchService(txScope core.TransactionScope, authz *appiam.Authorizer, metrics core.Metrics, logger *zap.Logger) *BatchService {
	if metrics == nil {
		metrics = core.NopMetrics{}
	}
	return &BatchService{
		txScope: txScope,
		authz:   authz,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// List returns batches in the units the actor can reach, newest first
func (s *BatchService) List(ctx context.Context, actor core.Actor, f BatchListFilter) (shared.Paginated[BatchDTO], error) {
	filter := shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: "created_at", OrderDir: "desc"}.Normalize()
	if f.OrgUnitID != nil {
		filter = filter.With("org_unit_id", *f.OrgUnitID)
	}
	if f.ServiceID != nil {
		filter = filter.With("service_id", *f.ServiceID)
	}
	if f.Status != "" {
		filter = filter.With("status", f.Status)
	}

	var result shared.Paginated[BatchDTO]
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		units, err := s.authz.AccessibleOrgUnits(ctx, repos, actor.TenantID, actor.UserID)
		if err != nil {
			return err
		}
		filter = filter.With("org_unit_ids", units)
		batches, err := repos.BatchRepo().FindAll(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		total, err := repos.BatchRepo().Count(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		result = shared.NewPaginated(ToBatchDTOs(batches), total, filter.Page, filter.PageSize)
		return nil
	})
	return result, err
}

// Get returns a batch the actor can reach
func (s *BatchService) Get(ctx context.Context, actor core.Actor, id uuid.UUID) (*BatchDTO, error) {
	var dto BatchDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		batch, err := repos.BatchRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if err := s.authz.RequireOrgAccess(ctx, repos, actor, batch.OrgUnitID); err != nil {
			return err
		}
		dto = ToBatchDTO(batch)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Create opens a draft batch for a unit and, optionally, one of its services
func (s *BatchService) Create(ctx context.Context, actor core.Actor, input CreateBatchInput) (*BatchDTO, error) {
	var dto BatchDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.ValidateOrgAccess(ctx, repos, actor, input.OrgUnitID, iam.PermBatchesCreate); err != nil {
			return err
		}
		if _, err := repos.OrgUnitRepo().FindByID(ctx, actor.TenantID, input.OrgUnitID); err != nil {
			return err
		}
		if err := s.checkService(ctx, repos, actor.TenantID, input.OrgUnitID, input.ServiceID, uuid.Nil); err != nil {
			return err
		}
		batch, err := finance.NewBatch(actor.TenantID, actor.UserID, input.OrgUnitID, input.ServiceID)
		if err != nil {
			return err
		}
		if err := repos.BatchRepo().Create(ctx, batch); err != nil {
			return err
		}
		dto = ToBatchDTO(batch)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityBatch, batch.ID, nil, batch.Snapshot())
	})
	if err != nil {
		return nil, err
	}
	s.metrics.BatchTransition(iam.AuditActionCreate)
	s.logger.Info("Batch created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("batch_id", dto.ID.String()),
		zap.String("org_unit_id", dto.OrgUnitID.String()))
	return &dto, nil
}

// Update moves a draft batch to another service
func (s *BatchService) Update(ctx context.Context, actor core.Actor, id uuid.UUID, serviceID *uuid.UUID) (*BatchDTO, error) {
	var dto BatchDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		batch, err := repos.BatchRepo().FindByIDForUpdate(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if err := batch.EnsureDraft("update"); err != nil {
			return err
		}
		if err := s.authz.ValidateOrgAccess(ctx, repos, actor, batch.OrgUnitID, iam.PermBatchesUpdate); err != nil {
			return err
		}
		if err := s.checkService(ctx, repos, actor.TenantID, batch.OrgUnitID, serviceID, batch.ID); err != nil {
			return err
		}
		before := map[string]any{"status": batch.Status, "service_id": batch.ServiceID}
		if err := batch.ChangeService(serviceID); err != nil {
			return err
		}
		if err := repos.BatchRepo().SaveWithLock(ctx, batch); err != nil {
			return err
		}
		dto = ToBatchDTO(batch)
		after := map[string]any{"status": batch.Status, "service_id": batch.ServiceID}
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityBatch, batch.ID, before, after)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Delete removes a draft batch that holds no entries
func (s *BatchService) Delete(ctx context.Context, actor core.Actor, id uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		batch, err := repos.BatchRepo().FindByIDForUpdate(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if err := batch.EnsureDraft("delete"); err != nil {
			return err
		}
		if err := s.authz.ValidateOrgAccess(ctx, repos, actor, batch.OrgUnitID, iam.PermBatchesDelete); err != nil {
			return err
		}
		count, err := repos.EntryRepo().CountByBatch(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return shared.Errorf(shared.CodeHasDependents, "cannot delete batch with %d finance entr(y/ies)", count)
		}
		if err := repos.BatchRepo().Delete(ctx, actor.TenantID, id); err != nil {
			return err
		}
		before := map[string]any{"id": batch.ID, "org_unit_id": batch.OrgUnitID}
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionDelete, entityBatch, id, before, nil)
	})
}

// Verify records the actor as the first or second verifier.
// The row is locked for the rest of the transaction so concurrent verifiers serialize.
func (s *BatchService) Verify(ctx context.Context, actor core.Actor, id uuid.UUID) (*BatchDTO, error) {
	var dto BatchDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		batch, err := repos.BatchRepo().FindByIDForUpdate(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if batch.IsLocked() {
			return shared.NewDomainError(shared.CodeInvalidState, "batch is already locked")
		}
		if err := s.authz.ValidateOrgAccess(ctx, repos, actor, batch.OrgUnitID, iam.PermFinanceVerify); err != nil {
			return err
		}
		before := batch.Snapshot()
		if err := batch.Verify(actor.UserID); err != nil {
			return err
		}
		if err := repos.BatchRepo().SaveWithLock(ctx, batch); err != nil {
			return err
		}
		dto = ToBatchDTO(batch)
		return core.RecordAudit(ctx, repos, actor, AuditActionVerify, entityBatch, batch.ID, before, batch.Snapshot())
	})
	if err != nil {
		return nil, err
	}
	s.metrics.BatchTransition(AuditActionVerify)
	s.logger.Info("Batch verified",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("batch_id", id.String()),
		zap.String("verifier_id", actor.UserID.String()),
		zap.Bool("fully_verified", dto.VerifiedBy2 != nil))
	return &dto, nil
}

// Lock locks a fully verified batch and every entry in it. The locker must be a
// third user, distinct from both verifiers.
func (s *BatchService) Lock(ctx context.Context, actor core.Actor, id uuid.UUID) (*BatchDTO, error) {
	var dto BatchDTO
	var cascaded int64
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		batch, err := repos.BatchRepo().FindByIDForUpdate(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if err := s.authz.ValidateOrgAccess(ctx, repos, actor, batch.OrgUnitID, iam.PermBatchesLock); err != nil {
			return err
		}
		before := batch.Snapshot()
		if err := batch.Lock(actor.UserID, s.now()); err != nil {
			return err
		}
		if err := repos.BatchRepo().SaveWithLock(ctx, batch); err != nil {
			return err
		}
		cascaded, err = repos.EntryRepo().SetStatusForBatch(ctx, actor.TenantID, batch.ID, nil, finance.VerifiedStatusLocked)
		if err != nil {
			return err
		}
		dto = ToBatchDTO(batch)
		return core.RecordAudit(ctx, repos, actor, AuditActionLock, entityBatch, batch.ID, before, batch.Snapshot())
	})
	if err != nil {
		return nil, err
	}
	s.metrics.BatchTransition(AuditActionLock)
	s.logger.Info("Batch locked",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("batch_id", id.String()),
		zap.Int64("entries_locked", cascaded))
	return &dto, nil
}

// Unlock returns a locked batch to draft and its locked entries to reconciled.
// It is an elevated single-user operation; the reason is kept in the audit trail.
func (s *BatchService) Unlock(ctx context.Context, actor core.Actor, id uuid.UUID, reason string) (*BatchDTO, error) {
	var dto BatchDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		batch, err := repos.BatchRepo().FindByIDForUpdate(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if !batch.IsLocked() {
			return shared.NewDomainError(shared.CodeInvalidState, "batch is not locked")
		}
		if err := s.authz.ValidateOrgAccess(ctx, repos, actor, batch.OrgUnitID, iam.PermBatchesUnlock); err != nil {
			return err
		}
		before := batch.Snapshot()
		if err := batch.Unlock(); err != nil {
			return err
		}
		if err := repos.BatchRepo().SaveWithLock(ctx, batch); err != nil {
			return err
		}
		_, err = repos.EntryRepo().SetStatusForBatch(ctx, actor.TenantID, batch.ID,
			[]finance.VerifiedStatus{finance.VerifiedStatusLocked}, finance.VerifiedStatusReconciled)
		if err != nil {
			return err
		}
		dto = ToBatchDTO(batch)
		after := batch.Snapshot()
		after["unlock_reason"] = reason
		return core.RecordAudit(ctx, repos, actor, AuditActionUnlock, entityBatch, batch.ID, before, after)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.BatchTransition(AuditActionUnlock)
	s.logger.Warn("Batch unlocked",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("batch_id", id.String()),
		zap.String("user_id", actor.UserID.String()),
		zap.String("reason", reason))
	return &dto, nil
}

// checkService validates that serviceID belongs to the unit and has no other batch
func (s *BatchService) checkService(ctx context.Context, repos core.TransactionalRepositories, tenantID, orgUnitID uuid.UUID, serviceID *uuid.UUID, excludeID uuid.UUID) error {
	if serviceID == nil {
		return nil
	}
	svc, err := repos.ServiceRepo().FindByID(ctx, tenantID, *serviceID)
	if err != nil {
		return err
	}
	if svc.OrgUnitID != orgUnitID {
		return shared.NewDomainError(shared.CodeInvalidInput, "service belongs to a different org unit")
	}
	exists, err := repos.BatchRepo().ExistsForService(ctx, tenantID, orgUnitID, serviceID, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError(shared.CodeAlreadyExists, "a batch already exists for this service")
	}
	return nil
}
