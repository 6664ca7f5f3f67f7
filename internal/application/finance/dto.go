package finance

import (
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FundDTO represents a fund
type FundDTO struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	IsPartnership bool      `json:"is_partnership"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToFundDTO converts a domain fund
func ToFundDTO(f *finance.Fund) FundDTO {
	return FundDTO{
		ID:            f.ID,
		Name:          f.Name,
		IsPartnership: f.IsPartnership,
		Active:        f.Active,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// PartnershipArmDTO represents a partnership arm
type PartnershipArmDTO struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	ActiveFrom time.Time  `json:"active_from"`
	ActiveTo   *time.Time `json:"active_to,omitempty"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ToPartnershipArmDTO converts a domain partnership arm
func ToPartnershipArmDTO(a *finance.PartnershipArm) PartnershipArmDTO {
	return PartnershipArmDTO{
		ID:         a.ID,
		Name:       a.Name,
		ActiveFrom: a.ActiveFrom,
		ActiveTo:   a.ActiveTo,
		Active:     a.Active,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// CreateFundInput contains input for creating a fund
type CreateFundInput struct {
	Name          string
	IsPartnership bool
}

// UpdateFundInput changes a fund. Nil fields are left unchanged.
type UpdateFundInput struct {
	Name          *string
	IsPartnership *bool
	Active        *bool
}

// CreatePartnershipArmInput contains input for creating a partnership arm
type CreatePartnershipArmInput struct {
	Name       string
	ActiveFrom time.Time
	ActiveTo   *time.Time
}

// UpdatePartnershipArmInput changes a partnership arm. Nil fields are left unchanged.
type UpdatePartnershipArmInput struct {
	Name       *string
	ActiveFrom *time.Time
	ActiveTo   *time.Time
	Active     *bool
}

// BatchDTO represents a batch
type BatchDTO struct {
	ID          uuid.UUID  `json:"id"`
	OrgUnitID   uuid.UUID  `json:"org_unit_id"`
	ServiceID   *uuid.UUID `json:"service_id,omitempty"`
	Status      string     `json:"status"`
	VerifiedBy1 *uuid.UUID `json:"verified_by_1,omitempty"`
	VerifiedBy2 *uuid.UUID `json:"verified_by_2,omitempty"`
	LockedBy    *uuid.UUID `json:"locked_by,omitempty"`
	LockedAt    *time.Time `json:"locked_at,omitempty"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ToBatchDTO converts a domain batch
func ToBatchDTO(b *finance.Batch) BatchDTO {
	return BatchDTO{
		ID:          b.ID,
		OrgUnitID:   b.OrgUnitID,
		ServiceID:   b.ServiceID,
		Status:      string(b.Status),
		VerifiedBy1: b.VerifiedBy1,
		VerifiedBy2: b.VerifiedBy2,
		LockedBy:    b.LockedBy,
		LockedAt:    b.LockedAt,
		CreatedBy:   b.CreatedBy,
		Version:     b.Version,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// ToBatchDTOs converts a slice of batches
func ToBatchDTOs(batches []finance.Batch) []BatchDTO {
	out := make([]BatchDTO, 0, len(batches))
	for i := range batches {
		out = append(out, ToBatchDTO(&batches[i]))
	}
	return out
}

// CreateBatchInput contains input for creating a batch
type CreateBatchInput struct {
	OrgUnitID uuid.UUID
	ServiceID *uuid.UUID
}

// BatchListFilter narrows batch listings
type BatchListFilter struct {
	OrgUnitID *uuid.UUID
	ServiceID *uuid.UUID
	Status    string
	Page      int
	PageSize  int
}

// EntryDTO represents a finance entry
type EntryDTO struct {
	ID                uuid.UUID       `json:"id"`
	OrgUnitID         uuid.UUID       `json:"org_unit_id"`
	BatchID           *uuid.UUID      `json:"batch_id,omitempty"`
	ServiceID         *uuid.UUID      `json:"service_id,omitempty"`
	FundID            uuid.UUID       `json:"fund_id"`
	PartnershipArmID  *uuid.UUID      `json:"partnership_arm_id,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Method            string          `json:"method"`
	PersonID          *uuid.UUID      `json:"person_id,omitempty"`
	CellID            *uuid.UUID      `json:"cell_id,omitempty"`
	ExternalGiverName *string         `json:"external_giver_name,omitempty"`
	Reference         *string         `json:"reference,omitempty"`
	Comment           *string         `json:"comment,omitempty"`
	VerifiedStatus    string          `json:"verified_status"`
	SourceType        string          `json:"source_type"`
	SourceID          *uuid.UUID      `json:"source_id,omitempty"`
	TransactionDate   time.Time       `json:"transaction_date"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ToEntryDTO converts a domain finance entry
func ToEntryDTO(e *finance.FinanceEntry) EntryDTO {
	return EntryDTO{
		ID:                e.ID,
		OrgUnitID:         e.OrgUnitID,
		BatchID:           e.BatchID,
		ServiceID:         e.ServiceID,
		FundID:            e.FundID,
		PartnershipArmID:  e.PartnershipArmID,
		Amount:            e.Amount,
		Currency:          e.Currency,
		Method:            string(e.Method),
		PersonID:          e.PersonID,
		CellID:            e.CellID,
		ExternalGiverName: e.ExternalGiverName,
		Reference:         e.Reference,
		Comment:           e.Comment,
		VerifiedStatus:    string(e.VerifiedStatus),
		SourceType:        string(e.SourceType),
		SourceID:          e.SourceID,
		TransactionDate:   e.TransactionDate,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

// entrySnapshot is the audited view of an entry
func entrySnapshot(e *finance.FinanceEntry) map[string]any {
	return map[string]any{
		"fund_id":         e.FundID,
		"amount":          e.Amount.StringFixed(2),
		"verified_status": e.VerifiedStatus,
	}
}

// CreateEntryInput contains input for creating a finance entry
type CreateEntryInput struct {
	OrgUnitID         uuid.UUID
	BatchID           *uuid.UUID
	ServiceID         *uuid.UUID
	FundID            uuid.UUID
	PartnershipArmID  *uuid.UUID
	Amount            decimal.Decimal
	Currency          string
	Method            string
	PersonID          *uuid.UUID
	CellID            *uuid.UUID
	ExternalGiverName *string
	Reference         *string
	Comment           *string
	TransactionDate   time.Time

	// SourceType and SourceID are set by other modules posting entries on a user's behalf
	SourceType string
	SourceID   *uuid.UUID
}

// UpdateEntryInput changes an entry. Nil fields are left unchanged.
type UpdateEntryInput struct {
	FundID            *uuid.UUID
	PartnershipArmID  *uuid.UUID
	Amount            *decimal.Decimal
	Method            *string
	PersonID          *uuid.UUID
	ExternalGiverName *string
	Reference         *string
	Comment           *string
	TransactionDate   *time.Time
}

// EntryListFilter narrows entry listings
type EntryListFilter struct {
	OrgUnitID        *uuid.UUID
	BatchID          *uuid.UUID
	ServiceID        *uuid.UUID
	FundID           *uuid.UUID
	PartnershipArmID *uuid.UUID
	PersonID         *uuid.UUID
	VerifiedStatus   string
	From             *time.Time
	To               *time.Time
	Page             int
	PageSize         int
}

// PartnershipDTO represents a partnership
type PartnershipDTO struct {
	ID               uuid.UUID           `json:"id"`
	PersonID         uuid.UUID           `json:"person_id"`
	FundID           uuid.UUID           `json:"fund_id"`
	PartnershipArmID *uuid.UUID          `json:"partnership_arm_id,omitempty"`
	Cadence          string              `json:"cadence"`
	StartDate        time.Time           `json:"start_date"`
	EndDate          *time.Time          `json:"end_date,omitempty"`
	TargetAmount     decimal.NullDecimal `json:"target_amount"`
	Status           string              `json:"status"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// ToPartnershipDTO converts a domain partnership
func ToPartnershipDTO(p *finance.Partnership) PartnershipDTO {
	return PartnershipDTO{
		ID:               p.ID,
		PersonID:         p.PersonID,
		FundID:           p.FundID,
		PartnershipArmID: p.PartnershipArmID,
		Cadence:          string(p.Cadence),
		StartDate:        p.StartDate,
		EndDate:          p.EndDate,
		TargetAmount:     p.TargetAmount,
		Status:           string(p.Status),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func partnershipSnapshot(p *finance.Partnership) map[string]any {
	var target *string
	if p.TargetAmount.Valid {
		s := p.TargetAmount.Decimal.StringFixed(2)
		target = &s
	}
	return map[string]any{
		"cadence":       p.Cadence,
		"status":        p.Status,
		"target_amount": target,
	}
}

// CreatePartnershipInput contains input for creating a partnership
type CreatePartnershipInput struct {
	PersonID         uuid.UUID
	FundID           uuid.UUID
	PartnershipArmID *uuid.UUID
	Cadence          string
	StartDate        time.Time
	EndDate          *time.Time
	TargetAmount     *decimal.Decimal
}

// UpdatePartnershipInput changes a partnership. Nil fields are left unchanged.
type UpdatePartnershipInput struct {
	Cadence      *string
	EndDate      *time.Time
	TargetAmount *decimal.Decimal
	Status       *string
}

// PartnershipListFilter narrows partnership listings
type PartnershipListFilter struct {
	PersonID *uuid.UUID
	FundID   *uuid.UUID
	Status   string
	Page     int
	PageSize int
}
