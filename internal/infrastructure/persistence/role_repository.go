package persistence

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRoleRepository implements iam.RoleRepository using GORM
type GormRoleRepository struct {
	db *gorm.DB
}

// NewGormRoleRepository creates a new GormRoleRepository
func NewGormRoleRepository(db *gorm.DB) *GormRoleRepository {
	return &GormRoleRepository{db: db}
}

var _ iam.RoleRepository = (*GormRoleRepository)(nil)

// FindByID finds a role by ID within a tenant
func (r *GormRoleRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*iam.Role, error) {
	var role iam.Role
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&role).Error; err != nil {
		return nil, notFound(err, "role", id)
	}
	return &role, nil
}

// FindByName finds a role by exact name
func (r *GormRoleRepository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*iam.Role, error) {
	var role iam.Role
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND name = ?", tenantID, name).
		First(&role).Error; err != nil {
		return nil, notFoundBy(err, "role", "name", name)
	}
	return &role, nil
}

// FindAll lists roles matching the filter
func (r *GormRoleRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]iam.Role, error) {
	var roles []iam.Role
	query := searchColumns(r.db.WithContext(ctx).Where("tenant_id = ?", tenantID), filter.Search, "name")
	query = paginate(query.Order(orderClause(filter.OrderBy, filter.OrderDir, RoleSortFields, "name")), filter.Page, filter.PageSize)
	if err := query.Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// Count counts roles matching the filter
func (r *GormRoleRepository) Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	err := searchColumns(r.db.WithContext(ctx).Model(&iam.Role{}).Where("tenant_id = ?", tenantID), filter.Search, "name").
		Count(&count).Error
	return count, err
}

// ExistsByName checks for a case-insensitive role name clash
func (r *GormRoleRepository) ExistsByName(ctx context.Context, tenantID uuid.UUID, name string, excludeID uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&iam.Role{}).
		Where("tenant_id = ? AND LOWER(name) = LOWER(?)", tenantID, name)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a role
func (r *GormRoleRepository) Save(ctx context.Context, role *iam.Role) error {
	return duplicate(r.db.WithContext(ctx).Save(role).Error, "role %q already exists", role.Name)
}

// Delete removes a role and its permission links
func (r *GormRoleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("role_id = ?", id).Delete(&iam.RolePermission{}).Error; err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&iam.Role{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NotFound("role", id)
	}
	return nil
}

// FindPermissions lists the permissions linked to a role ordered by code
func (r *GormRoleRepository) FindPermissions(ctx context.Context, roleID uuid.UUID) ([]iam.Permission, error) {
	var perms []iam.Permission
	if err := r.db.WithContext(ctx).
		Joins("JOIN role_permissions rp ON rp.permission_id = permissions.id").
		Where("rp.role_id = ?", roleID).
		Order("permissions.code ASC").
		Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

// HasPermission reports whether the link exists
func (r *GormRoleRepository) HasPermission(ctx context.Context, roleID, permissionID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&iam.RolePermission{}).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddPermission inserts a link, ignoring an existing one
func (r *GormRoleRepository) AddPermission(ctx context.Context, link iam.RolePermission) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
}

// RemovePermission deletes a link
func (r *GormRoleRepository) RemovePermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Delete(&iam.RolePermission{}).Error
}

// GormPermissionRepository implements iam.PermissionRepository using GORM
type GormPermissionRepository struct {
	db *gorm.DB
}

// NewGormPermissionRepository creates a new GormPermissionRepository
func NewGormPermissionRepository(db *gorm.DB) *GormPermissionRepository {
	return &GormPermissionRepository{db: db}
}

var _ iam.PermissionRepository = (*GormPermissionRepository)(nil)

func (r *GormPermissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*iam.Permission, error) {
	var p iam.Permission
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "permission", id)
	}
	return &p, nil
}

func (r *GormPermissionRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]iam.Permission, error) {
	if len(ids) == 0 {
		return []iam.Permission{}, nil
	}
	var perms []iam.Permission
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("code ASC").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *GormPermissionRepository) FindByCode(ctx context.Context, code string) (*iam.Permission, error) {
	var p iam.Permission
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&p).Error; err != nil {
		return nil, notFoundBy(err, "permission", "code", code)
	}
	return &p, nil
}

func (r *GormPermissionRepository) FindAll(ctx context.Context, modulePrefix string) ([]iam.Permission, error) {
	query := r.db.WithContext(ctx).Order("code ASC")
	if modulePrefix != "" {
		query = query.Where(`code LIKE ? ESCAPE '\'`, likePrefix(modulePrefix))
	}
	var perms []iam.Permission
	if err := query.Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

// Save upserts a permission by code, keeping the existing id
func (r *GormPermissionRepository) Save(ctx context.Context, permission *iam.Permission) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "updated_at"}),
	}).Create(permission).Error
}

// FindCodesForUser resolves permission codes through every role the user is
// assigned anywhere in the tenant
func (r *GormPermissionRepository) FindCodesForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]string, error) {
	codes := []string{}
	err := r.db.WithContext(ctx).
		Table("permissions p").
		Distinct("p.code").
		Joins("JOIN role_permissions rp ON rp.permission_id = p.id").
		Joins("JOIN org_assignments oa ON oa.role_id = rp.role_id").
		Where("oa.tenant_id = ? AND oa.user_id = ?", tenantID, userID).
		Order("p.code").
		Pluck("p.code", &codes).Error
	return codes, err
}

func likePrefix(prefix string) string {
	p := likePattern(prefix)
	return p[1:]
}
