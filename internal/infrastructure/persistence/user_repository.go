package persistence

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/identity"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

var _ identity.UserRepository = (*GormUserRepository)(nil)

// FindByID finds a user by ID within a tenant
func (r *GormUserRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*identity.User, error) {
	var user identity.User
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&user).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

// FindByEmail finds a user by normalized email. Emails are unique across tenants.
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var user identity.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFoundBy(err, "user", "email", email)
	}
	return &user, nil
}

// FindAll lists users matching the filter
func (r *GormUserRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]identity.User, error) {
	var users []identity.User
	query := searchColumns(r.db.WithContext(ctx).Where("tenant_id = ?", tenantID), filter.Search, "email")
	query = paginate(query.Order(orderClause(filter.OrderBy, filter.OrderDir, UserSortFields, "email")), filter.Page, filter.PageSize)
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Count counts users matching the filter
func (r *GormUserRepository) Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	err := searchColumns(r.db.WithContext(ctx).Model(&identity.User{}).Where("tenant_id = ?", tenantID), filter.Search, "email").
		Count(&count).Error
	return count, err
}

// Save creates or updates a user
func (r *GormUserRepository) Save(ctx context.Context, user *identity.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}
