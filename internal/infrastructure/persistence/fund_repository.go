package persistence

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFundRepository implements finance.FundRepository using GORM
type GormFundRepository struct {
	db *gorm.DB
}

// NewGormFundRepository creates a new GormFundRepository
func NewGormFundRepository(db *gorm.DB) *GormFundRepository {
	return &GormFundRepository{db: db}
}

var _ finance.FundRepository = (*GormFundRepository)(nil)

func (r *GormFundRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.Fund, error) {
	var f finance.Fund
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&f).Error; err != nil {
		return nil, notFound(err, "fund", id)
	}
	return &f, nil
}

func (r *GormFundRepository) FindActiveByName(ctx context.Context, tenantID uuid.UUID, name string) (*finance.Fund, error) {
	var f finance.Fund
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ? AND LOWER(name) = LOWER(?)", tenantID, true, name).
		First(&f).Error; err != nil {
		return nil, notFoundBy(err, "fund", "name", name)
	}
	return &f, nil
}

func (r *GormFundRepository) FindAll(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]finance.Fund, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var list []finance.Fund
	if err := query.Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormFundRepository) ExistsByName(ctx context.Context, tenantID uuid.UUID, name string, excludeID uuid.UUID) (bool, error) {
	return existsByName(ctx, r.db, &finance.Fund{}, tenantID, name, excludeID)
}

func (r *GormFundRepository) Save(ctx context.Context, f *finance.Fund) error {
	return duplicate(r.db.WithContext(ctx).Save(f).Error, "fund %q already exists", f.Name)
}

func (r *GormFundRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return deleteScoped(ctx, r.db, &finance.Fund{}, tenantID, id, "fund")
}

// GormPartnershipArmRepository implements finance.PartnershipArmRepository using GORM
type GormPartnershipArmRepository struct {
	db *gorm.DB
}

// NewGormPartnershipArmRepository creates a new GormPartnershipArmRepository
func NewGormPartnershipArmRepository(db *gorm.DB) *GormPartnershipArmRepository {
	return &GormPartnershipArmRepository{db: db}
}

var _ finance.PartnershipArmRepository = (*GormPartnershipArmRepository)(nil)

func (r *GormPartnershipArmRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.PartnershipArm, error) {
	var a finance.PartnershipArm
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&a).Error; err != nil {
		return nil, notFound(err, "partnership arm", id)
	}
	return &a, nil
}

func (r *GormPartnershipArmRepository) FindAll(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]finance.PartnershipArm, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var list []finance.PartnershipArm
	if err := query.Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormPartnershipArmRepository) ExistsByName(ctx context.Context, tenantID uuid.UUID, name string, excludeID uuid.UUID) (bool, error) {
	return existsByName(ctx, r.db, &finance.PartnershipArm{}, tenantID, name, excludeID)
}

func (r *GormPartnershipArmRepository) Save(ctx context.Context, a *finance.PartnershipArm) error {
	return duplicate(r.db.WithContext(ctx).Save(a).Error, "partnership arm %q already exists", a.Name)
}

func (r *GormPartnershipArmRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return deleteScoped(ctx, r.db, &finance.PartnershipArm{}, tenantID, id, "partnership arm")
}

func existsByName(ctx context.Context, db *gorm.DB, model any, tenantID uuid.UUID, name string, excludeID uuid.UUID) (bool, error) {
	query := db.WithContext(ctx).Model(model).Where("tenant_id = ? AND LOWER(name) = LOWER(?)", tenantID, name)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func deleteScoped(ctx context.Context, db *gorm.DB, model any, tenantID, id uuid.UUID, resource string) error {
	result := db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NotFound(resource, id)
	}
	return nil
}
