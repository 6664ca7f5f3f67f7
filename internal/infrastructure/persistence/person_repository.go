package persistence

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPersonRepository implements registry.PersonRepository using GORM
type GormPersonRepository struct {
	db *gorm.DB
}

// NewGormPersonRepository creates a new GormPersonRepository
func NewGormPersonRepository(db *gorm.DB) *GormPersonRepository {
	return &GormPersonRepository{db: db}
}

var _ registry.PersonRepository = (*GormPersonRepository)(nil)

// FindByID finds a person by ID within a tenant
func (r *GormPersonRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*registry.Person, error) {
	var p registry.Person
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&p).Error; err != nil {
		return nil, notFound(err, "person", id)
	}
	return &p, nil
}

// FindAll lists people matching the filter
func (r *GormPersonRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]registry.Person, error) {
	var people []registry.Person
	query := r.applyFilter(r.db.WithContext(ctx).Model(&registry.Person{}), tenantID, filter)
	query = paginate(query.Order(orderClause(filter.OrderBy, filter.OrderDir, PersonSortFields, "created_at")), filter.Page, filter.PageSize)
	if err := query.Find(&people).Error; err != nil {
		return nil, err
	}
	return people, nil
}

// Count counts people matching the filter
func (r *GormPersonRepository) Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&registry.Person{}), tenantID, filter).Count(&count).Error
	return count, err
}

// FindByEmail finds a person by case-insensitive email
func (r *GormPersonRepository) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*registry.Person, error) {
	var p registry.Person
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND LOWER(email) = LOWER(?)", tenantID, email).
		Order("created_at ASC").
		First(&p).Error; err != nil {
		return nil, notFoundBy(err, "person", "email", email)
	}
	return &p, nil
}

// FindByMemberCode finds a person by member code, ignoring case
func (r *GormPersonRepository) FindByMemberCode(ctx context.Context, tenantID uuid.UUID, code string) (*registry.Person, error) {
	var p registry.Person
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND UPPER(member_code) = UPPER(?)", tenantID, code).
		First(&p).Error; err != nil {
		return nil, notFoundBy(err, "person", "member_code", code)
	}
	return &p, nil
}

// CountByOrgUnit counts people belonging to the unit
func (r *GormPersonRepository) CountByOrgUnit(ctx context.Context, tenantID, orgUnitID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&registry.Person{}).
		Where("tenant_id = ? AND org_unit_id = ?", tenantID, orgUnitID).
		Count(&count).Error
	return count, err
}

// MaxMemberCode returns the numerically highest MEM- code. Codes are
// zero-padded, so ordering by length first keeps MEM-10000 above MEM-9999.
func (r *GormPersonRepository) MaxMemberCode(ctx context.Context, tenantID uuid.UUID) (string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).Model(&registry.Person{}).
		Where("tenant_id = ? AND member_code LIKE ?", tenantID, "MEM-%").
		Order("LENGTH(member_code) DESC").
		Order("member_code DESC").
		Limit(1).
		Pluck("member_code", &codes).Error; err != nil {
		return "", err
	}
	if len(codes) == 0 {
		return "", nil
	}
	return codes[0], nil
}

// Save creates or updates a person
func (r *GormPersonRepository) Save(ctx context.Context, p *registry.Person) error {
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		code := ""
		if p.MemberCode != nil {
			code = *p.MemberCode
		}
		return duplicate(err, "member code %q is already in use", code)
	}
	return nil
}

// Delete removes a person together with the membership row
func (r *GormPersonRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := r.DeleteMembership(ctx, id); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&registry.Person{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NotFound("person", id)
	}
	return nil
}

// FindMembership returns the membership row of a person
func (r *GormPersonRepository) FindMembership(ctx context.Context, personID uuid.UUID) (*registry.Membership, error) {
	var m registry.Membership
	if err := r.db.WithContext(ctx).Where("person_id = ?", personID).First(&m).Error; err != nil {
		return nil, notFound(err, "membership for person", personID)
	}
	return &m, nil
}

// SaveMembership upserts the membership row
func (r *GormPersonRepository) SaveMembership(ctx context.Context, m *registry.Membership) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// DeleteMembership removes the membership row if present
func (r *GormPersonRepository) DeleteMembership(ctx context.Context, personID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("person_id = ?", personID).Delete(&registry.Membership{}).Error
}

// ClearCellMemberships detaches every member from a cell
func (r *GormPersonRepository) ClearCellMemberships(ctx context.Context, cellID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&registry.Membership{}).
		Where("cell_id = ?", cellID).
		Update("cell_id", nil)
	return result.RowsAffected, result.Error
}

func (r *GormPersonRepository) applyFilter(query *gorm.DB, tenantID uuid.UUID, filter shared.Filter) *gorm.DB {
	query = query.Where("tenant_id = ?", tenantID)
	if unitID, ok := uuidFilter(filter, "org_unit_id"); ok {
		query = query.Where("org_unit_id = ?", unitID)
	}
	if ids, ok := uuidsFilter(filter, "org_unit_ids"); ok {
		query = scopeUnits(query, "org_unit_id", ids)
	}
	return searchColumns(query, filter.Search, "first_name", "last_name", "email", "phone", "member_code")
}
