package persistence

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPartnershipRepository implements finance.PartnershipRepository using GORM
type GormPartnershipRepository struct {
	db *gorm.DB
}

// NewGormPartnershipRepository creates a new GormPartnershipRepository
func NewGormPartnershipRepository(db *gorm.DB) *GormPartnershipRepository {
	return &GormPartnershipRepository{db: db}
}

var _ finance.PartnershipRepository = (*GormPartnershipRepository)(nil)

func (r *GormPartnershipRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.Partnership, error) {
	var p finance.Partnership
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&p).Error; err != nil {
		return nil, notFound(err, "partnership", id)
	}
	return &p, nil
}

func (r *GormPartnershipRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]finance.Partnership, error) {
	var list []finance.Partnership
	query := r.applyFilter(r.db.WithContext(ctx).Model(&finance.Partnership{}), tenantID, filter)
	query = paginate(query.Order("partnerships."+orderClause(filter.OrderBy, filter.OrderDir, PartnershipSortFields, "created_at")), filter.Page, filter.PageSize)
	if err := query.Select("partnerships.*").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormPartnershipRepository) Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&finance.Partnership{}), tenantID, filter).Count(&count).Error
	return count, err
}

func (r *GormPartnershipRepository) CountByPartnershipArm(ctx context.Context, tenantID, armID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&finance.Partnership{}).
		Where("tenant_id = ? AND partnership_arm_id = ?", tenantID, armID).
		Count(&count).Error
	return count, err
}

func (r *GormPartnershipRepository) Save(ctx context.Context, p *finance.Partnership) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *GormPartnershipRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return deleteScoped(ctx, r.db, &finance.Partnership{}, tenantID, id, "partnership")
}

func (r *GormPartnershipRepository) ReassignPerson(ctx context.Context, tenantID, fromPersonID, toPersonID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&finance.Partnership{}).
		Where("tenant_id = ? AND person_id = ?", tenantID, fromPersonID).
		Update("person_id", toPersonID)
	return result.RowsAffected, result.Error
}

// applyFilter supports "person_id", "fund_id", "status" and "org_unit_ids";
// unit scoping goes through the partner's home unit
func (r *GormPartnershipRepository) applyFilter(query *gorm.DB, tenantID uuid.UUID, filter shared.Filter) *gorm.DB {
	query = query.Where("partnerships.tenant_id = ?", tenantID)
	if personID, ok := uuidFilter(filter, "person_id"); ok {
		query = query.Where("partnerships.person_id = ?", personID)
	}
	if fundID, ok := uuidFilter(filter, "fund_id"); ok {
		query = query.Where("partnerships.fund_id = ?", fundID)
	}
	if status, ok := stringFilter(filter, "status"); ok {
		query = query.Where("partnerships.status = ?", status)
	}
	if ids, ok := uuidsFilter(filter, "org_unit_ids"); ok {
		query = query.Joins("JOIN people ON people.id = partnerships.person_id")
		query = scopeUnits(query, "people.org_unit_id", ids)
	}
	return query
}
