package persistence

import (
	"context"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormEntryRepository implements finance.EntryRepository using GORM
type GormEntryRepository struct {
	db *gorm.DB
}

// NewGormEntryRepository creates a new GormEntryRepository
func NewGormEntryRepository(db *gorm.DB) *GormEntryRepository {
	return &GormEntryRepository{db: db}
}

var _ finance.EntryRepository = (*GormEntryRepository)(nil)

func (r *GormEntryRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.FinanceEntry, error) {
	var e finance.FinanceEntry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&e).Error; err != nil {
		return nil, notFound(err, "finance entry", id)
	}
	return &e, nil
}

// FindAll lists entries by transaction date, newest first
func (r *GormEntryRepository) FindAll(ctx context.Context, tenantID uuid.UUID, f finance.EntryFilter) ([]finance.FinanceEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&finance.FinanceEntry{}).Where("tenant_id = ?", tenantID)
	if f.OrgUnitID != nil {
		query = query.Where("org_unit_id = ?", *f.OrgUnitID)
	}
	if f.OrgUnitIDs != nil {
		query = scopeUnits(query, "org_unit_id", f.OrgUnitIDs)
	}
	if f.BatchID != nil {
		query = query.Where("batch_id = ?", *f.BatchID)
	}
	if f.ServiceID != nil {
		query = query.Where("service_id = ?", *f.ServiceID)
	}
	if f.FundID != nil {
		query = query.Where("fund_id = ?", *f.FundID)
	}
	if f.PartnershipArmID != nil {
		query = query.Where("partnership_arm_id = ?", *f.PartnershipArmID)
	}
	if f.PersonID != nil {
		query = query.Where("person_id = ?", *f.PersonID)
	}
	if f.VerifiedStatus != "" {
		query = query.Where("verified_status = ?", f.VerifiedStatus)
	}
	if f.From != nil {
		query = query.Where("transaction_date >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("transaction_date <= ?", *f.To)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []finance.FinanceEntry
	if err := paginate(query.Order("transaction_date DESC").Order("created_at DESC"), f.Page, f.PageSize).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// FindBySource finds the entry generated from another record, e.g. a cell report offering
func (r *GormEntryRepository) FindBySource(ctx context.Context, tenantID uuid.UUID, source finance.SourceType, sourceID uuid.UUID) (*finance.FinanceEntry, error) {
	var e finance.FinanceEntry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND source_type = ? AND source_id = ?", tenantID, source, sourceID).
		First(&e).Error; err != nil {
		return nil, notFound(err, "finance entry for source", sourceID)
	}
	return &e, nil
}

func (r *GormEntryRepository) Save(ctx context.Context, e *finance.FinanceEntry) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *GormEntryRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return deleteScoped(ctx, r.db, &finance.FinanceEntry{}, tenantID, id, "finance entry")
}

func (r *GormEntryRepository) CountByFund(ctx context.Context, tenantID, fundID uuid.UUID) (int64, error) {
	return r.countWhere(ctx, "tenant_id = ? AND fund_id = ?", tenantID, fundID)
}

func (r *GormEntryRepository) CountByPartnershipArm(ctx context.Context, tenantID, armID uuid.UUID) (int64, error) {
	return r.countWhere(ctx, "tenant_id = ? AND partnership_arm_id = ?", tenantID, armID)
}

func (r *GormEntryRepository) CountByBatch(ctx context.Context, tenantID, batchID uuid.UUID) (int64, error) {
	return r.countWhere(ctx, "tenant_id = ? AND batch_id = ?", tenantID, batchID)
}

func (r *GormEntryRepository) countWhere(ctx context.Context, cond string, args ...any) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&finance.FinanceEntry{}).Where(cond, args...).Count(&count).Error
	return count, err
}

// SetStatusForBatch cascades a batch status change onto its entries
func (r *GormEntryRepository) SetStatusForBatch(ctx context.Context, tenantID, batchID uuid.UUID, from []finance.VerifiedStatus, to finance.VerifiedStatus) (int64, error) {
	query := r.db.WithContext(ctx).Model(&finance.FinanceEntry{}).
		Where("tenant_id = ? AND batch_id = ?", tenantID, batchID)
	if len(from) > 0 {
		query = query.Where("verified_status IN ?", from)
	}
	result := query.Updates(map[string]any{
		"verified_status": to,
		"updated_at":      time.Now().UTC(),
	})
	return result.RowsAffected, result.Error
}

type giverTotal struct {
	Total decimal.NullDecimal
	Count int64
}

// SumForGiver totals a person's giving into a fund over a date window
func (r *GormEntryRepository) SumForGiver(ctx context.Context, tenantID, personID, fundID uuid.UUID, armID *uuid.UUID, from, to time.Time) (decimal.Decimal, int64, error) {
	query := r.db.WithContext(ctx).Model(&finance.FinanceEntry{}).
		Select("SUM(amount) AS total, COUNT(*) AS count").
		Where("tenant_id = ? AND person_id = ? AND fund_id = ?", tenantID, personID, fundID).
		Where("transaction_date >= ? AND transaction_date <= ?", from, to)
	if armID != nil {
		query = query.Where("partnership_arm_id = ?", *armID)
	}
	var row giverTotal
	if err := query.Scan(&row).Error; err != nil {
		return decimal.Zero, 0, err
	}
	if !row.Total.Valid {
		return decimal.Zero, row.Count, nil
	}
	return row.Total.Decimal, row.Count, nil
}

// ReassignPerson moves a person's gifts onto another person
func (r *GormEntryRepository) ReassignPerson(ctx context.Context, tenantID, fromPersonID, toPersonID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&finance.FinanceEntry{}).
		Where("tenant_id = ? AND person_id = ?", tenantID, fromPersonID).
		Update("person_id", toPersonID)
	return result.RowsAffected, result.Error
}
