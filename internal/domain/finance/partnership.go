package finance

import (
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cadence is how often a partner pledges to give
type Cadence string

const (
	CadenceWeekly    Cadence = "weekly"
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
	CadenceAnnual    Cadence = "annual"
)

// WindowDays returns the length of the fulfilment window
func (c Cadence) WindowDays() int {
	switch c {
	case CadenceWeekly:
		return 7
	case CadenceMonthly:
		return 30
	case CadenceQuarterly:
		return 90
	case CadenceAnnual:
		return 365
	}
	return 0
}

// IsValid reports whether c is a known cadence
func (c Cadence) IsValid() bool {
	return c.WindowDays() > 0
}

// PartnershipStatus is the state of a pledge
type PartnershipStatus string

const (
	PartnershipActive PartnershipStatus = "active"
	PartnershipPaused PartnershipStatus = "paused"
	PartnershipEnded  PartnershipStatus = "ended"
)

// IsValid reports whether s is a known partnership status
func (s PartnershipStatus) IsValid() bool {
	switch s {
	case PartnershipActive, PartnershipPaused, PartnershipEnded:
		return true
	}
	return false
}

// Partnership is a person's recurring giving pledge
type Partnership struct {
	shared.TenantEntity
	PersonID         uuid.UUID           `gorm:"type:uuid;not null;index"`
	FundID           uuid.UUID           `gorm:"type:uuid;not null;index"`
	PartnershipArmID *uuid.UUID          `gorm:"type:uuid;index"`
	Cadence          Cadence             `gorm:"type:varchar(20);not null"`
	StartDate        time.Time           `gorm:"type:date;not null"`
	EndDate          *time.Time          `gorm:"type:date"`
	TargetAmount     decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	Status           PartnershipStatus   `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (Partnership) TableName() string {
	return "partnerships"
}

// NewPartnership creates an active pledge
func NewPartnership(tenantID, createdBy, personID, fundID uuid.UUID, armID *uuid.UUID, cadence Cadence, start time.Time, end *time.Time, target decimal.NullDecimal) (*Partnership, error) {
	if !cadence.IsValid() {
		return nil, shared.Errorf(shared.CodeInvalidInput, "invalid cadence %q", cadence)
	}
	if start.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "start date is required")
	}
	if end != nil && end.Before(start) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "end date cannot be before start date")
	}
	if target.Valid && target.Decimal.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "target amount cannot be negative")
	}
	return &Partnership{
		TenantEntity:     shared.NewTenantEntity(tenantID, createdBy),
		PersonID:         personID,
		FundID:           fundID,
		PartnershipArmID: armID,
		Cadence:          cadence,
		StartDate:        start,
		EndDate:          end,
		TargetAmount:     target,
		Status:           PartnershipActive,
	}, nil
}

// Window returns the cadence window [from, to] used for fulfilment.
// It ends on the end date when set, otherwise on today.
func (p *Partnership) Window(today time.Time) (from, to time.Time) {
	to = truncateDay(today)
	if p.EndDate != nil {
		to = truncateDay(*p.EndDate)
	}
	from = to.AddDate(0, 0, -p.Cadence.WindowDays())
	return from, to
}

// Fulfilment summarises giving against a pledge
type Fulfilment struct {
	PartnershipID uuid.UUID           `json:"partnership_id"`
	From          time.Time           `json:"from"`
	To            time.Time           `json:"to"`
	TotalGiven    decimal.Decimal     `json:"total_given"`
	EntryCount    int64               `json:"entry_count"`
	TargetAmount  decimal.NullDecimal `json:"target_amount"`
	Percentage    *float64            `json:"fulfilment_percentage,omitempty"`
}

// NewFulfilment computes the percentage of target when the target is positive
func NewFulfilment(p *Partnership, from, to time.Time, total decimal.Decimal, count int64) Fulfilment {
	f := Fulfilment{
		PartnershipID: p.ID,
		From:          from,
		To:            to,
		TotalGiven:    total,
		EntryCount:    count,
		TargetAmount:  p.TargetAmount,
	}
	if p.TargetAmount.Valid && p.TargetAmount.Decimal.IsPositive() {
		pct, _ := total.Div(p.TargetAmount.Decimal).Mul(decimal.NewFromInt(100)).Round(2).Float64()
		f.Percentage = &pct
	}
	return f
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
