package finance

import (
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// BatchStatus is the lifecycle state of a batch
type BatchStatus string

const (
	BatchStatusDraft  BatchStatus = "draft"
	BatchStatusLocked BatchStatus = "locked"
)

// Batch groups the finance entries of one service at one org unit.
// A batch is locked only after two different users verified it and a third user locks it.
type Batch struct {
	shared.TenantAggregateRoot
	OrgUnitID   uuid.UUID   `gorm:"type:uuid;not null;index"`
	ServiceID   *uuid.UUID  `gorm:"type:uuid;index"`
	Status      BatchStatus `gorm:"type:varchar(20);not null;default:'draft'"`
	VerifiedBy1 *uuid.UUID  `gorm:"column:verified_by_1;type:uuid"`
	VerifiedBy2 *uuid.UUID  `gorm:"column:verified_by_2;type:uuid"`
	LockedBy    *uuid.UUID  `gorm:"type:uuid"`
	LockedAt    *time.Time
}

// TableName returns the table name for GORM
func (Batch) TableName() string {
	return "batches"
}

// NewBatch creates a draft batch
func NewBatch(tenantID, createdBy, orgUnitID uuid.UUID, serviceID *uuid.UUID) (*Batch, error) {
	if orgUnitID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "org unit is required")
	}
	return &Batch{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, createdBy),
		OrgUnitID:           orgUnitID,
		ServiceID:           serviceID,
		Status:              BatchStatusDraft,
	}, nil
}

// IsLocked reports whether the batch is locked
func (b *Batch) IsLocked() bool {
	return b.Status == BatchStatusLocked
}

// EnsureDraft fails when the batch is locked
func (b *Batch) EnsureDraft(action string) error {
	if b.IsLocked() {
		return shared.Errorf(shared.CodeInvalidState, "cannot %s locked batch", action)
	}
	return nil
}

// IsFullyVerified reports whether both verifier slots hold different users
func (b *Batch) IsFullyVerified() bool {
	return b.VerifiedBy1 != nil && b.VerifiedBy2 != nil && *b.VerifiedBy1 != *b.VerifiedBy2
}

// WasVerifiedBy reports whether userID fills either verifier slot
func (b *Batch) WasVerifiedBy(userID uuid.UUID) bool {
	return (b.VerifiedBy1 != nil && *b.VerifiedBy1 == userID) ||
		(b.VerifiedBy2 != nil && *b.VerifiedBy2 == userID)
}

// Verify records a verification by verifierID.
// The first verifier fills slot one, a different second verifier fills slot two.
func (b *Batch) Verify(verifierID uuid.UUID) error {
	if b.IsLocked() {
		return shared.NewDomainError(shared.CodeInvalidState, "batch is already locked")
	}
	switch {
	case b.VerifiedBy1 == nil:
		b.VerifiedBy1 = &verifierID
	case b.VerifiedBy2 == nil:
		if *b.VerifiedBy1 == verifierID {
			return shared.NewDomainError(shared.CodeDualVerification,
				"dual verification requires two different users; this batch has already been verified by you")
		}
		b.VerifiedBy2 = &verifierID
	default:
		return shared.NewDomainError(shared.CodeDualVerification, "batch has already been verified by two users")
	}
	b.IncrementVersion()
	return nil
}

// Lock locks a fully verified batch. The locker must not be one of the verifiers.
func (b *Batch) Lock(lockerID uuid.UUID, at time.Time) error {
	if b.IsLocked() {
		return shared.NewDomainError(shared.CodeInvalidState, "batch is already locked")
	}
	if !b.IsFullyVerified() {
		return shared.NewDomainError(shared.CodeDualVerification,
			"batch requires verification by two different users before it can be locked")
	}
	if b.WasVerifiedBy(lockerID) {
		return shared.NewDomainError(shared.CodeDualVerification,
			"cannot lock batch: you were one of the verifiers; locking requires a third user")
	}
	b.Status = BatchStatusLocked
	b.LockedBy = &lockerID
	at = at.UTC()
	b.LockedAt = &at
	b.IncrementVersion()
	return nil
}

// Unlock returns a locked batch to draft. Verifications are kept.
func (b *Batch) Unlock() error {
	if !b.IsLocked() {
		return shared.NewDomainError(shared.CodeInvalidState, "batch is not locked")
	}
	b.Status = BatchStatusDraft
	b.LockedBy = nil
	b.LockedAt = nil
	b.IncrementVersion()
	return nil
}

// ChangeService moves a draft batch to another service
func (b *Batch) ChangeService(serviceID *uuid.UUID) error {
	if err := b.EnsureDraft("update"); err != nil {
		return err
	}
	b.ServiceID = serviceID
	b.IncrementVersion()
	return nil
}

// Snapshot returns the audited view of the batch state
func (b *Batch) Snapshot() map[string]any {
	return map[string]any{
		"status":        b.Status,
		"verified_by_1": b.VerifiedBy1,
		"verified_by_2": b.VerifiedBy2,
		"locked_by":     b.LockedBy,
		"locked_at":     b.LockedAt,
	}
}
