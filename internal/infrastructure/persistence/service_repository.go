package persistence

import (
	"context"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormServiceRepository implements registry.ServiceRepository using GORM
type GormServiceRepository struct {
	db *gorm.DB
}

// NewGormServiceRepository creates a new GormServiceRepository
func NewGormServiceRepository(db *gorm.DB) *GormServiceRepository {
	return &GormServiceRepository{db: db}
}

var _ registry.ServiceRepository = (*GormServiceRepository)(nil)

func (r *GormServiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*registry.Service, error) {
	var s registry.Service
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&s).Error; err != nil {
		return nil, notFound(err, "service", id)
	}
	return &s, nil
}

// FindByNaturalKey finds the service held at a unit under name on date
func (r *GormServiceRepository) FindByNaturalKey(ctx context.Context, tenantID, orgUnitID uuid.UUID, name string, date time.Time) (*registry.Service, error) {
	var s registry.Service
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND org_unit_id = ? AND name = ? AND service_date = ?", tenantID, orgUnitID, name, date).
		First(&s).Error; err != nil {
		return nil, notFoundBy(err, "service", "name", name)
	}
	return &s, nil
}

// FindAll lists services newest first
func (r *GormServiceRepository) FindAll(ctx context.Context, tenantID uuid.UUID, f registry.ServiceFilter) ([]registry.Service, int64, error) {
	query := serviceScope(r.db.WithContext(ctx).Model(&registry.Service{}), "services", tenantID, f).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []registry.Service
	if err := paginate(query.Order("services.service_date DESC").Order("services.name ASC"), f.Page, f.PageSize).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *GormServiceRepository) Save(ctx context.Context, s *registry.Service) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *GormServiceRepository) FindAttendanceByID(ctx context.Context, tenantID, id uuid.UUID) (*registry.Attendance, error) {
	var a registry.Attendance
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&a).Error; err != nil {
		return nil, notFound(err, "attendance", id)
	}
	return &a, nil
}

func (r *GormServiceRepository) FindAttendanceByService(ctx context.Context, tenantID, serviceID uuid.UUID) (*registry.Attendance, error) {
	var a registry.Attendance
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND service_id = ?", tenantID, serviceID).
		First(&a).Error; err != nil {
		return nil, notFound(err, "attendance for service", serviceID)
	}
	return &a, nil
}

// FindAttendance lists attendance joined to services so unit and date filters apply
func (r *GormServiceRepository) FindAttendance(ctx context.Context, tenantID uuid.UUID, f registry.ServiceFilter) ([]registry.Attendance, int64, error) {
	query := r.db.WithContext(ctx).Model(&registry.Attendance{}).
		Joins("JOIN services ON services.id = attendance.service_id")
	query = serviceScope(query.Where("attendance.tenant_id = ?", tenantID), "services", tenantID, f).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []registry.Attendance
	if err := paginate(query.Select("attendance.*").Order("services.service_date DESC"), f.Page, f.PageSize).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *GormServiceRepository) SaveAttendance(ctx context.Context, a *registry.Attendance) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func serviceScope(query *gorm.DB, table string, tenantID uuid.UUID, f registry.ServiceFilter) *gorm.DB {
	query = query.Where(table+".tenant_id = ?", tenantID)
	if f.OrgUnitID != nil {
		query = query.Where(table+".org_unit_id = ?", *f.OrgUnitID)
	}
	if f.OrgUnitIDs != nil {
		query = scopeUnits(query, table+".org_unit_id", f.OrgUnitIDs)
	}
	if f.From != nil {
		query = query.Where(table+".service_date >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where(table+".service_date <= ?", *f.To)
	}
	return query
}
