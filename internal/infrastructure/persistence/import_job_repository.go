package persistence

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/imports"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// importErrorBatchSize caps rows per INSERT when writing row errors
const importErrorBatchSize = 500

// GormImportJobRepository implements imports.JobRepository using GORM
type GormImportJobRepository struct {
	db *gorm.DB
}

// NewGormImportJobRepository creates a new GormImportJobRepository
func NewGormImportJobRepository(db *gorm.DB) *GormImportJobRepository {
	return &GormImportJobRepository{db: db}
}

var _ imports.JobRepository = (*GormImportJobRepository)(nil)

func (r *GormImportJobRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*imports.Job, error) {
	var j imports.Job
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&j).Error; err != nil {
		return nil, notFound(err, "import job", id)
	}
	return &j, nil
}

func (r *GormImportJobRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]imports.Job, error) {
	var list []imports.Job
	query := r.applyFilter(r.db.WithContext(ctx).Model(&imports.Job{}), tenantID, filter)
	query = paginate(query.Order(orderClause(filter.OrderBy, filter.OrderDir, ImportJobSortFields, "created_at")), filter.Page, filter.PageSize)
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormImportJobRepository) Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&imports.Job{}), tenantID, filter).Count(&count).Error
	return count, err
}

func (r *GormImportJobRepository) Save(ctx context.Context, j *imports.Job) error {
	return r.db.WithContext(ctx).Save(j).Error
}

// AddErrors appends row errors in batches
func (r *GormImportJobRepository) AddErrors(ctx context.Context, errs []imports.RowError) error {
	if len(errs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(errs, importErrorBatchSize).Error
}

// FindErrors lists row errors in row order; limit <= 0 returns all of them
func (r *GormImportJobRepository) FindErrors(ctx context.Context, jobID uuid.UUID, limit int) ([]imports.RowError, error) {
	query := r.db.WithContext(ctx).Where("import_job_id = ?", jobID).Order("row_number ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var list []imports.RowError
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormImportJobRepository) DeleteErrors(ctx context.Context, jobID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("import_job_id = ?", jobID).Delete(&imports.RowError{}).Error
}

// applyFilter supports "user_id", "status" and "entity_type"
func (r *GormImportJobRepository) applyFilter(query *gorm.DB, tenantID uuid.UUID, filter shared.Filter) *gorm.DB {
	query = query.Where("tenant_id = ?", tenantID)
	if userID, ok := uuidFilter(filter, "user_id"); ok {
		query = query.Where("user_id = ?", userID)
	}
	if status, ok := stringFilter(filter, "status"); ok {
		query = query.Where("status = ?", status)
	}
	if entity, ok := stringFilter(filter, "entity_type"); ok {
		query = query.Where("entity_type = ?", entity)
	}
	return query
}
