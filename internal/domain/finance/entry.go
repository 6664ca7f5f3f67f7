package finance

import (
	"strings"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when an entry does not name one
const DefaultCurrency = "EUR"

// PaymentMethod is how a gift was received
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodKingsPay     PaymentMethod = "kingspay"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodPOS          PaymentMethod = "pos"
	MethodCheque       PaymentMethod = "cheque"
	MethodOther        PaymentMethod = "other"
)

// IsValid reports whether m is a known payment method
func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodKingsPay, MethodBankTransfer, MethodPOS, MethodCheque, MethodOther:
		return true
	}
	return false
}

// VerifiedStatus is the per-entry verification stage
type VerifiedStatus string

const (
	VerifiedStatusDraft      VerifiedStatus = "draft"
	VerifiedStatusVerified   VerifiedStatus = "verified"
	VerifiedStatusReconciled VerifiedStatus = "reconciled"
	VerifiedStatusLocked     VerifiedStatus = "locked"
)

// IsValid reports whether s is a known verified status
func (s VerifiedStatus) IsValid() bool {
	switch s {
	case VerifiedStatusDraft, VerifiedStatusVerified, VerifiedStatusReconciled, VerifiedStatusLocked:
		return true
	}
	return false
}

// ReportableStatuses are the statuses counted by reports by default
func ReportableStatuses() []VerifiedStatus {
	return []VerifiedStatus{VerifiedStatusVerified, VerifiedStatusReconciled, VerifiedStatusLocked}
}

// SourceType records where an entry came from
type SourceType string

const (
	SourceManual     SourceType = "manual"
	SourceCellReport SourceType = "cell_report"
	SourceImport     SourceType = "import"
)

// FinanceEntry is a single gift or payment
type FinanceEntry struct {
	shared.TenantEntity
	OrgUnitID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	BatchID           *uuid.UUID      `gorm:"type:uuid;index"`
	ServiceID         *uuid.UUID      `gorm:"type:uuid;index"`
	FundID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	PartnershipArmID  *uuid.UUID      `gorm:"type:uuid;index"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency          string          `gorm:"type:varchar(3);not null;default:'EUR'"`
	Method            PaymentMethod   `gorm:"type:varchar(20);not null"`
	PersonID          *uuid.UUID      `gorm:"type:uuid;index"`
	CellID            *uuid.UUID      `gorm:"type:uuid;index"`
	ExternalGiverName *string         `gorm:"type:varchar(200)"`
	Reference         *string         `gorm:"type:varchar(100)"`
	Comment           *string         `gorm:"type:text"`
	VerifiedStatus    VerifiedStatus  `gorm:"type:varchar(20);not null;default:'draft';index"`
	SourceType        SourceType      `gorm:"type:varchar(20);not null;default:'manual'"`
	SourceID          *uuid.UUID      `gorm:"type:uuid;index"`
	TransactionDate   time.Time       `gorm:"type:date;not null;index"`
}

// TableName returns the table name for GORM
func (FinanceEntry) TableName() string {
	return "finance_entries"
}

// EntryParams carries the attributes of a new entry
type EntryParams struct {
	OrgUnitID         uuid.UUID
	BatchID           *uuid.UUID
	ServiceID         *uuid.UUID
	FundID            uuid.UUID
	PartnershipArmID  *uuid.UUID
	Amount            decimal.Decimal
	Currency          string
	Method            PaymentMethod
	PersonID          *uuid.UUID
	CellID            *uuid.UUID
	ExternalGiverName *string
	Reference         *string
	Comment           *string
	SourceType        SourceType
	SourceID          *uuid.UUID
	TransactionDate   time.Time
}

// NewFinanceEntry validates params and creates a draft entry
func NewFinanceEntry(tenantID, createdBy uuid.UUID, p EntryParams) (*FinanceEntry, error) {
	if p.OrgUnitID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "org unit is required")
	}
	if p.FundID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "fund is required")
	}
	if err := validateAmount(p.Amount); err != nil {
		return nil, err
	}
	if !p.Method.IsValid() {
		return nil, shared.Errorf(shared.CodeInvalidInput, "invalid payment method %q", p.Method)
	}
	giver := trimmed(p.ExternalGiverName)
	if p.PersonID == nil && p.CellID == nil && giver == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			"either person_id, cell_id, or external_giver_name must be provided")
	}
	if p.TransactionDate.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "transaction date is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if len(currency) != 3 {
		return nil, shared.Errorf(shared.CodeInvalidInput, "invalid currency %q", p.Currency)
	}
	source := p.SourceType
	if source == "" {
		source = SourceManual
	}

	return &FinanceEntry{
		TenantEntity:      shared.NewTenantEntity(tenantID, createdBy),
		OrgUnitID:         p.OrgUnitID,
		BatchID:           p.BatchID,
		ServiceID:         p.ServiceID,
		FundID:            p.FundID,
		PartnershipArmID:  p.PartnershipArmID,
		Amount:            p.Amount.Round(2),
		Currency:          currency,
		Method:            p.Method,
		PersonID:          p.PersonID,
		CellID:            p.CellID,
		ExternalGiverName: giver,
		Reference:         trimmed(p.Reference),
		Comment:           p.Comment,
		VerifiedStatus:    VerifiedStatusDraft,
		SourceType:        source,
		SourceID:          p.SourceID,
		TransactionDate:   p.TransactionDate,
	}, nil
}

// IsLocked reports whether the entry was locked with its batch
func (e *FinanceEntry) IsLocked() bool {
	return e.VerifiedStatus == VerifiedStatusLocked
}

// EnsureEditable fails for locked entries
func (e *FinanceEntry) EnsureEditable() error {
	if e.IsLocked() {
		return shared.NewDomainError(shared.CodeInvalidState, "cannot modify locked finance entry")
	}
	return nil
}

// ChangeAmount sets a new positive amount
func (e *FinanceEntry) ChangeAmount(amount decimal.Decimal) error {
	if err := e.EnsureEditable(); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	e.Amount = amount.Round(2)
	e.Touch()
	return nil
}

// SetVerifiedStatus moves the entry between draft, verified and reconciled.
// Locking happens only through the batch.
func (e *FinanceEntry) SetVerifiedStatus(status VerifiedStatus) error {
	if err := e.EnsureEditable(); err != nil {
		return err
	}
	if !status.IsValid() {
		return shared.Errorf(shared.CodeInvalidInput, "invalid verified status %q", status)
	}
	if status == VerifiedStatusLocked {
		return shared.NewDomainError(shared.CodeInvalidInput, "entries are locked through their batch")
	}
	e.VerifiedStatus = status
	e.Touch()
	return nil
}

// Reconcile marks the entry reconciled
func (e *FinanceEntry) Reconcile() error {
	return e.SetVerifiedStatus(VerifiedStatusReconciled)
}

// HasGiver reports whether the entry still names a person, cell or external giver
func (e *FinanceEntry) HasGiver() bool {
	return e.PersonID != nil || e.CellID != nil || e.ExternalGiverName != nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "amount must be greater than zero")
	}
	if amount.GreaterThanOrEqual(decimal.New(1, 10)) {
		return shared.NewDomainError(shared.CodeInvalidInput, "amount exceeds the maximum allowed")
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
