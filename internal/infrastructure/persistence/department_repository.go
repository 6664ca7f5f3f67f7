package persistence

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDepartmentRepository implements registry.DepartmentRepository using GORM
type GormDepartmentRepository struct {
	db *gorm.DB
}

// NewGormDepartmentRepository creates a new GormDepartmentRepository
func NewGormDepartmentRepository(db *gorm.DB) *GormDepartmentRepository {
	return &GormDepartmentRepository{db: db}
}

var _ registry.DepartmentRepository = (*GormDepartmentRepository)(nil)

func (r *GormDepartmentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*registry.Department, error) {
	var d registry.Department
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&d).Error; err != nil {
		return nil, notFound(err, "department", id)
	}
	return &d, nil
}

func (r *GormDepartmentRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]registry.Department, error) {
	var list []registry.Department
	query := r.applyFilter(r.db.WithContext(ctx).Model(&registry.Department{}), tenantID, filter)
	query = paginate(query.Order(orderClause(filter.OrderBy, filter.OrderDir, DepartmentSortFields, "name")), filter.Page, filter.PageSize)
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormDepartmentRepository) Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&registry.Department{}), tenantID, filter).Count(&count).Error
	return count, err
}

func (r *GormDepartmentRepository) Save(ctx context.Context, d *registry.Department) error {
	return r.db.WithContext(ctx).Save(d).Error
}

// Delete removes a department and its role rows
func (r *GormDepartmentRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("dept_id = ?", id).Delete(&registry.DepartmentRole{}).Error; err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&registry.Department{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NotFound("department", id)
	}
	return nil
}

func (r *GormDepartmentRepository) FindRoles(ctx context.Context, deptID uuid.UUID) ([]registry.DepartmentRole, error) {
	var roles []registry.DepartmentRole
	if err := r.db.WithContext(ctx).
		Where("dept_id = ?", deptID).
		Order("created_at ASC").
		Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *GormDepartmentRepository) FindRole(ctx context.Context, deptID, personID uuid.UUID) (*registry.DepartmentRole, error) {
	var role registry.DepartmentRole
	if err := r.db.WithContext(ctx).
		Where("dept_id = ? AND person_id = ?", deptID, personID).
		First(&role).Error; err != nil {
		return nil, notFound(err, "department member", personID)
	}
	return &role, nil
}

func (r *GormDepartmentRepository) CountRoles(ctx context.Context, deptID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&registry.DepartmentRole{}).Where("dept_id = ?", deptID).Count(&count).Error
	return count, err
}

func (r *GormDepartmentRepository) SaveRole(ctx context.Context, role *registry.DepartmentRole) error {
	return r.db.WithContext(ctx).Save(role).Error
}

func (r *GormDepartmentRepository) DeleteRole(ctx context.Context, deptID, personID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("dept_id = ? AND person_id = ?", deptID, personID).
		Delete(&registry.DepartmentRole{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NotFound("department member", personID)
	}
	return nil
}

// ReassignPerson moves roles to toPersonID, dropping the ones that would
// duplicate a role the target already holds in the same department
func (r *GormDepartmentRepository) ReassignPerson(ctx context.Context, fromPersonID, toPersonID uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)
	held := db.Model(&registry.DepartmentRole{}).Select("dept_id").Where("person_id = ?", toPersonID)
	if err := db.Where("person_id = ? AND dept_id IN (?)", fromPersonID, held).
		Delete(&registry.DepartmentRole{}).Error; err != nil {
		return 0, err
	}
	result := db.Model(&registry.DepartmentRole{}).
		Where("person_id = ?", fromPersonID).
		Update("person_id", toPersonID)
	return result.RowsAffected, result.Error
}

// DeleteRolesOf removes every department role held by personID
func (r *GormDepartmentRepository) DeleteRolesOf(ctx context.Context, personID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("person_id = ?", personID).Delete(&registry.DepartmentRole{})
	return result.RowsAffected, result.Error
}

func (r *GormDepartmentRepository) applyFilter(query *gorm.DB, tenantID uuid.UUID, filter shared.Filter) *gorm.DB {
	query = query.Where("tenant_id = ?", tenantID)
	if unitID, ok := uuidFilter(filter, "org_unit_id"); ok {
		query = query.Where("org_unit_id = ?", unitID)
	}
	if ids, ok := uuidsFilter(filter, "org_unit_ids"); ok {
		query = scopeUnits(query, "org_unit_id", ids)
	}
	if status, ok := stringFilter(filter, "status"); ok {
		query = query.Where("status = ?", status)
	}
	return searchColumns(query, filter.Search, "name")
}
