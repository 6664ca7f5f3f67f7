package persistence

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBatchRepository implements finance.BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

var _ finance.BatchRepository = (*GormBatchRepository)(nil)

func (r *GormBatchRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.Batch, error) {
	var b finance.Batch
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&b).Error; err != nil {
		return nil, notFound(err, "batch", id)
	}
	return &b, nil
}

// FindByIDForUpdate takes a row lock so concurrent verify and lock calls serialize
func (r *GormBatchRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.Batch, error) {
	var b finance.Batch
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&b).Error; err != nil {
		return nil, notFound(err, "batch", id)
	}
	return &b, nil
}

// ExistsForService reports whether another batch already covers the service at the unit
func (r *GormBatchRepository) ExistsForService(ctx context.Context, tenantID, orgUnitID uuid.UUID, serviceID *uuid.UUID, excludeID uuid.UUID) (bool, error) {
	if serviceID == nil {
		return false, nil
	}
	query := r.db.WithContext(ctx).Model(&finance.Batch{}).
		Where("tenant_id = ? AND org_unit_id = ? AND service_id = ?", tenantID, orgUnitID, *serviceID)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormBatchRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]finance.Batch, error) {
	var list []finance.Batch
	query := r.applyFilter(r.db.WithContext(ctx).Model(&finance.Batch{}), tenantID, filter)
	query = paginate(query.Order(orderClause(filter.OrderBy, filter.OrderDir, BatchSortFields, "created_at")), filter.Page, filter.PageSize)
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormBatchRepository) Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&finance.Batch{}), tenantID, filter).Count(&count).Error
	return count, err
}

func (r *GormBatchRepository) Create(ctx context.Context, b *finance.Batch) error {
	return duplicate(r.db.WithContext(ctx).Create(b).Error, "a batch already exists for this service")
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormBatchRepository) SaveWithLock(ctx context.Context, b *finance.Batch) error {
	result := r.db.WithContext(ctx).
		Model(&finance.Batch{}).
		Where("tenant_id = ? AND id = ? AND version = ?", b.TenantID, b.ID, b.Version-1).
		Updates(map[string]any{
			"service_id":    b.ServiceID,
			"status":        b.Status,
			"verified_by_1": b.VerifiedBy1,
			"verified_by_2": b.VerifiedBy2,
			"locked_by":     b.LockedBy,
			"locked_at":     b.LockedAt,
			"version":       b.Version,
			"updated_at":    b.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

func (r *GormBatchRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return deleteScoped(ctx, r.db, &finance.Batch{}, tenantID, id, "batch")
}

func (r *GormBatchRepository) applyFilter(query *gorm.DB, tenantID uuid.UUID, filter shared.Filter) *gorm.DB {
	query = query.Where("tenant_id = ?", tenantID)
	if unitID, ok := uuidFilter(filter, "org_unit_id"); ok {
		query = query.Where("org_unit_id = ?", unitID)
	}
	if ids, ok := uuidsFilter(filter, "org_unit_ids"); ok {
		query = scopeUnits(query, "org_unit_id", ids)
	}
	if serviceID, ok := uuidFilter(filter, "service_id"); ok {
		query = query.Where("service_id = ?", serviceID)
	}
	if status, ok := stringFilter(filter, "status"); ok {
		query = query.Where("status = ?", status)
	}
	return query
}
