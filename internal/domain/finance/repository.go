package finance

import (
	"context"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FundRepository persists funds
type FundRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Fund, error)

	// FindActiveByName matches the name case-insensitively among active funds
	FindActiveByName(ctx context.Context, tenantID uuid.UUID, name string) (*Fund, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]Fund, error)
	ExistsByName(ctx context.Context, tenantID uuid.UUID, name string, excludeID uuid.UUID) (bool, error)
	Save(ctx context.Context, fund *Fund) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// PartnershipArmRepository persists partnership arms
type PartnershipArmRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*PartnershipArm, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]PartnershipArm, error)
	ExistsByName(ctx context.Context, tenantID uuid.UUID, name string, excludeID uuid.UUID) (bool, error)
	Save(ctx context.Context, arm *PartnershipArm) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// BatchRepository persists batches.
// Supported filter keys: "org_unit_id", "service_id", "status", "org_unit_ids" ([]uuid.UUID).
type BatchRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Batch, error)

	// FindByIDForUpdate reads the batch with a row lock held until the transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Batch, error)
	ExistsForService(ctx context.Context, tenantID, orgUnitID uuid.UUID, serviceID *uuid.UUID, excludeID uuid.UUID) (bool, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Batch, error)
	Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
	Create(ctx context.Context, batch *Batch) error

	// SaveWithLock updates the batch only if its stored version is batch.Version-1
	SaveWithLock(ctx context.Context, batch *Batch) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// EntryFilter narrows finance entry queries. Zero values are ignored.
type EntryFilter struct {
	OrgUnitID        *uuid.UUID
	OrgUnitIDs       []uuid.UUID
	BatchID          *uuid.UUID
	ServiceID        *uuid.UUID
	FundID           *uuid.UUID
	PartnershipArmID *uuid.UUID
	PersonID         *uuid.UUID
	VerifiedStatus   VerifiedStatus
	From             *time.Time
	To               *time.Time
	Page             int
	PageSize         int
}

// EntryRepository persists finance entries
type EntryRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*FinanceEntry, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter EntryFilter) ([]FinanceEntry, int64, error)
	FindBySource(ctx context.Context, tenantID uuid.UUID, source SourceType, sourceID uuid.UUID) (*FinanceEntry, error)
	Save(ctx context.Context, entry *FinanceEntry) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	CountByFund(ctx context.Context, tenantID, fundID uuid.UUID) (int64, error)
	CountByPartnershipArm(ctx context.Context, tenantID, armID uuid.UUID) (int64, error)
	CountByBatch(ctx context.Context, tenantID, batchID uuid.UUID) (int64, error)

	// SetStatusForBatch moves every entry of the batch currently in one of from
	// (or any status when from is empty) to status and returns the affected count
	SetStatusForBatch(ctx context.Context, tenantID, batchID uuid.UUID, from []VerifiedStatus, to VerifiedStatus) (int64, error)

	// SumForGiver totals entries of personID into fundID (and armID when set) dated within [from, to]
	SumForGiver(ctx context.Context, tenantID, personID, fundID uuid.UUID, armID *uuid.UUID, from, to time.Time) (decimal.Decimal, int64, error)

	// ReassignPerson moves entries from one person to another
	ReassignPerson(ctx context.Context, tenantID, fromPersonID, toPersonID uuid.UUID) (int64, error)
}

// PartnershipRepository persists partnerships
type PartnershipRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Partnership, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Partnership, error)
	Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
	CountByPartnershipArm(ctx context.Context, tenantID, armID uuid.UUID) (int64, error)
	Save(ctx context.Context, p *Partnership) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	ReassignPerson(ctx context.Context, tenantID, fromPersonID, toPersonID uuid.UUID) (int64, error)
}
