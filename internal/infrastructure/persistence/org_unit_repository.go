package persistence

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxHierarchyDepth bounds parent-chain walks so corrupted data cannot loop forever
const maxHierarchyDepth = 64

// GormOrgUnitRepository implements iam.OrgUnitRepository using GORM
type GormOrgUnitRepository struct {
	db *gorm.DB
}

// NewGormOrgUnitRepository creates a new GormOrgUnitRepository
func NewGormOrgUnitRepository(db *gorm.DB) *GormOrgUnitRepository {
	return &GormOrgUnitRepository{db: db}
}

var _ iam.OrgUnitRepository = (*GormOrgUnitRepository)(nil)

// FindByID finds an org unit by ID within a tenant
func (r *GormOrgUnitRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*iam.OrgUnit, error) {
	var unit iam.OrgUnit
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&unit).Error; err != nil {
		return nil, notFound(err, "org unit", id)
	}
	return &unit, nil
}

// FindByIDs loads the listed units; missing ids are silently skipped
func (r *GormOrgUnitRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]iam.OrgUnit, error) {
	if len(ids) == 0 {
		return []iam.OrgUnit{}, nil
	}
	var units []iam.OrgUnit
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Order("name ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// FindAll lists org units matching the filter
func (r *GormOrgUnitRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]iam.OrgUnit, error) {
	var units []iam.OrgUnit
	query := r.applyFilter(r.db.WithContext(ctx).Model(&iam.OrgUnit{}), tenantID, filter)
	query = paginate(query.Order(orderClause(filter.OrderBy, filter.OrderDir, OrgUnitSortFields, "name")), filter.Page, filter.PageSize)
	if err := query.Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// Count counts org units matching the filter
func (r *GormOrgUnitRepository) Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&iam.OrgUnit{}), tenantID, filter).Count(&count).Error
	return count, err
}

// FindChildren lists the direct children of parentID
func (r *GormOrgUnitRepository) FindChildren(ctx context.Context, tenantID, parentID uuid.UUID) ([]iam.OrgUnit, error) {
	var units []iam.OrgUnit
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND parent_id = ?", tenantID, parentID).
		Order("name ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// FindDescendantIDs returns all units below id. Postgres uses a recursive CTE;
// other dialects, or a failing CTE, fall back to a level-by-level walk.
func (r *GormOrgUnitRepository) FindDescendantIDs(ctx context.Context, tenantID, id uuid.UUID) ([]uuid.UUID, error) {
	if isPostgres(r.db) {
		ids, err := r.descendantsCTE(ctx, tenantID, id)
		if err == nil {
			return ids, nil
		}
		logger.L(ctx).Warn("recursive descendant query failed, walking levels instead",
			zap.String("org_unit_id", id.String()), zap.Error(err))
	}
	return r.descendantsBFS(ctx, tenantID, id)
}

func (r *GormOrgUnitRepository) descendantsCTE(ctx context.Context, tenantID, id uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.db.WithContext(ctx).Raw(`
WITH RECURSIVE tree AS (
	SELECT id FROM org_units WHERE tenant_id = ? AND parent_id = ?
	UNION ALL
	SELECT o.id FROM org_units o JOIN tree t ON o.parent_id = t.id WHERE o.tenant_id = ?
)
SELECT id FROM tree`, tenantID, id, tenantID).Scan(&ids).Error
	return ids, err
}

func (r *GormOrgUnitRepository) descendantsBFS(ctx context.Context, tenantID, id uuid.UUID) ([]uuid.UUID, error) {
	out := []uuid.UUID{}
	seen := map[uuid.UUID]bool{id: true}
	frontier := []uuid.UUID{id}
	for depth := 0; len(frontier) > 0 && depth < maxHierarchyDepth; depth++ {
		var next []uuid.UUID
		if err := r.db.WithContext(ctx).Model(&iam.OrgUnit{}).
			Where("tenant_id = ? AND parent_id IN ?", tenantID, frontier).
			Pluck("id", &next).Error; err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, child := range next {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			frontier = append(frontier, child)
		}
	}
	return out, nil
}

// FindAncestors walks the parent chain of id and returns it root first
func (r *GormOrgUnitRepository) FindAncestors(ctx context.Context, tenantID, id uuid.UUID) ([]iam.OrgUnit, error) {
	current, err := r.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	var chain []iam.OrgUnit
	seen := map[uuid.UUID]bool{current.ID: true}
	for depth := 0; current.ParentID != nil && depth < maxHierarchyDepth; depth++ {
		if seen[*current.ParentID] {
			break
		}
		parent, err := r.FindByID(ctx, tenantID, *current.ParentID)
		if err != nil {
			return nil, err
		}
		seen[parent.ID] = true
		chain = append(chain, *parent)
		current = parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	if chain == nil {
		chain = []iam.OrgUnit{}
	}
	return chain, nil
}

// ExistsSibling checks for a case-insensitive name clash under the same parent
func (r *GormOrgUnitRepository) ExistsSibling(ctx context.Context, tenantID uuid.UUID, parentID *uuid.UUID, name string, excludeID uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&iam.OrgUnit{}).
		Where("tenant_id = ? AND LOWER(name) = LOWER(?)", tenantID, name)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasChildren reports whether any unit has id as parent
func (r *GormOrgUnitRepository) HasChildren(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&iam.OrgUnit{}).
		Where("tenant_id = ? AND parent_id = ?", tenantID, id).
		Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates an org unit
func (r *GormOrgUnitRepository) Save(ctx context.Context, unit *iam.OrgUnit) error {
	return r.db.WithContext(ctx).Save(unit).Error
}

// Delete removes an org unit
func (r *GormOrgUnitRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&iam.OrgUnit{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NotFound("org unit", id)
	}
	return nil
}

func (r *GormOrgUnitRepository) applyFilter(query *gorm.DB, tenantID uuid.UUID, filter shared.Filter) *gorm.DB {
	query = query.Where("tenant_id = ?", tenantID)
	if t, ok := stringFilter(filter, "type"); ok {
		query = query.Where("type = ?", t)
	}
	if parentID, ok := uuidFilter(filter, "parent_id"); ok {
		query = query.Where("parent_id = ?", parentID)
	}
	return searchColumns(query, filter.Search, "name")
}
