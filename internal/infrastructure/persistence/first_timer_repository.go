package persistence

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFirstTimerRepository implements registry.FirstTimerRepository using GORM
type GormFirstTimerRepository struct {
	db *gorm.DB
}

// NewGormFirstTimerRepository creates a new GormFirstTimerRepository
func NewGormFirstTimerRepository(db *gorm.DB) *GormFirstTimerRepository {
	return &GormFirstTimerRepository{db: db}
}

var _ registry.FirstTimerRepository = (*GormFirstTimerRepository)(nil)

func (r *GormFirstTimerRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*registry.FirstTimer, error) {
	var ft registry.FirstTimer
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&ft).Error; err != nil {
		return nil, notFound(err, "first-timer", id)
	}
	return &ft, nil
}

func (r *GormFirstTimerRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]registry.FirstTimer, error) {
	var list []registry.FirstTimer
	query := r.applyFilter(r.db.WithContext(ctx).Model(&registry.FirstTimer{}), tenantID, filter)
	query = paginate(query.Order("first_timers."+orderClause(filter.OrderBy, filter.OrderDir, FirstTimerSortFields, "created_at")), filter.Page, filter.PageSize)
	if err := query.Select("first_timers.*").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormFirstTimerRepository) Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&registry.FirstTimer{}), tenantID, filter).Count(&count).Error
	return count, err
}

func (r *GormFirstTimerRepository) Save(ctx context.Context, ft *registry.FirstTimer) error {
	return r.db.WithContext(ctx).Save(ft).Error
}

// ReassignPerson points first-timer records at another person
func (r *GormFirstTimerRepository) ReassignPerson(ctx context.Context, tenantID, fromPersonID, toPersonID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&registry.FirstTimer{}).
		Where("tenant_id = ? AND person_id = ?", tenantID, fromPersonID).
		Update("person_id", toPersonID)
	return result.RowsAffected, result.Error
}

// DetachPerson unlinks first-timers from a deleted person
func (r *GormFirstTimerRepository) DetachPerson(ctx context.Context, tenantID, personID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&registry.FirstTimer{}).
		Where("tenant_id = ? AND person_id = ?", tenantID, personID).
		Update("person_id", nil)
	return result.RowsAffected, result.Error
}

// applyFilter scopes by org unit through the owning service
func (r *GormFirstTimerRepository) applyFilter(query *gorm.DB, tenantID uuid.UUID, filter shared.Filter) *gorm.DB {
	query = query.Where("first_timers.tenant_id = ?", tenantID)
	if serviceID, ok := uuidFilter(filter, "service_id"); ok {
		query = query.Where("first_timers.service_id = ?", serviceID)
	}
	if status, ok := stringFilter(filter, "status"); ok {
		query = query.Where("first_timers.status = ?", status)
	}
	if ids, ok := uuidsFilter(filter, "org_unit_ids"); ok {
		query = query.Joins("JOIN services ON services.id = first_timers.service_id")
		query = scopeUnits(query, "services.org_unit_id", ids)
	}
	return query
}
