package persistence

import (
	"context"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAssignmentRepository implements iam.AssignmentRepository using GORM
type GormAssignmentRepository struct {
	db *gorm.DB
}

// NewGormAssignmentRepository creates a new GormAssignmentRepository
func NewGormAssignmentRepository(db *gorm.DB) *GormAssignmentRepository {
	return &GormAssignmentRepository{db: db}
}

var _ iam.AssignmentRepository = (*GormAssignmentRepository)(nil)

// FindByID finds an assignment with its custom units
func (r *GormAssignmentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*iam.OrgAssignment, error) {
	var a iam.OrgAssignment
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&a).Error; err != nil {
		return nil, notFound(err, "assignment", id)
	}
	list := []iam.OrgAssignment{a}
	if err := r.loadCustomUnits(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// FindByUser lists a user's assignments
func (r *GormAssignmentRepository) FindByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]iam.OrgAssignment, error) {
	return r.find(ctx, r.db.Where("tenant_id = ? AND user_id = ?", tenantID, userID))
}

// FindByOrgUnit lists the assignments anchored at an org unit
func (r *GormAssignmentRepository) FindByOrgUnit(ctx context.Context, tenantID, orgUnitID uuid.UUID) ([]iam.OrgAssignment, error) {
	return r.find(ctx, r.db.Where("tenant_id = ? AND org_unit_id = ?", tenantID, orgUnitID))
}

func (r *GormAssignmentRepository) find(ctx context.Context, query *gorm.DB) ([]iam.OrgAssignment, error) {
	var list []iam.OrgAssignment
	if err := query.WithContext(ctx).Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	if err := r.loadCustomUnits(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormAssignmentRepository) loadCustomUnits(ctx context.Context, list []iam.OrgAssignment) error {
	ids := make([]uuid.UUID, 0, len(list))
	for _, a := range list {
		if a.ScopeType == iam.ScopeCustomSet {
			ids = append(ids, a.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	var rows []iam.OrgAssignmentUnit
	if err := r.db.WithContext(ctx).
		Where("assignment_id IN ?", ids).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return err
	}
	byAssignment := make(map[uuid.UUID][]uuid.UUID, len(ids))
	for _, row := range rows {
		byAssignment[row.AssignmentID] = append(byAssignment[row.AssignmentID], row.OrgUnitID)
	}
	for i := range list {
		if units, ok := byAssignment[list[i].ID]; ok {
			list[i].CustomOrgUnitIDs = units
		}
	}
	return nil
}

// Exists reports whether the user already has an assignment at the unit
func (r *GormAssignmentRepository) Exists(ctx context.Context, tenantID, userID, orgUnitID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&iam.OrgAssignment{}).
		Where("tenant_id = ? AND user_id = ? AND org_unit_id = ?", tenantID, userID, orgUnitID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountByOrgUnit counts assignments anchored at or listing the unit
func (r *GormAssignmentRepository) CountByOrgUnit(ctx context.Context, tenantID, orgUnitID uuid.UUID) (int64, error) {
	var anchored, listed int64
	if err := r.db.WithContext(ctx).Model(&iam.OrgAssignment{}).
		Where("tenant_id = ? AND org_unit_id = ?", tenantID, orgUnitID).
		Count(&anchored).Error; err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).Model(&iam.OrgAssignmentUnit{}).
		Joins("JOIN org_assignments oa ON oa.id = org_assignment_units.assignment_id").
		Where("oa.tenant_id = ? AND org_assignment_units.org_unit_id = ?", tenantID, orgUnitID).
		Count(&listed).Error; err != nil {
		return 0, err
	}
	return anchored + listed, nil
}

// CountByRole counts assignments granting the role
func (r *GormAssignmentRepository) CountByRole(ctx context.Context, tenantID, roleID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&iam.OrgAssignment{}).
		Where("tenant_id = ? AND role_id = ?", tenantID, roleID).
		Count(&count).Error
	return count, err
}

// Save writes the assignment and replaces its custom unit rows
func (r *GormAssignmentRepository) Save(ctx context.Context, a *iam.OrgAssignment) error {
	db := r.db.WithContext(ctx)
	if err := db.Save(a).Error; err != nil {
		return err
	}
	if err := db.Where("assignment_id = ?", a.ID).Delete(&iam.OrgAssignmentUnit{}).Error; err != nil {
		return err
	}
	if a.ScopeType != iam.ScopeCustomSet || len(a.CustomOrgUnitIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]iam.OrgAssignmentUnit, len(a.CustomOrgUnitIDs))
	for i, unitID := range a.CustomOrgUnitIDs {
		// strictly increasing timestamps keep the stored order stable
		rows[i] = iam.OrgAssignmentUnit{AssignmentID: a.ID, OrgUnitID: unitID, CreatedAt: now.Add(time.Duration(i) * time.Microsecond)}
	}
	return db.Create(&rows).Error
}

// Delete removes an assignment and its custom units
func (r *GormAssignmentRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("assignment_id = ?", id).Delete(&iam.OrgAssignmentUnit{}).Error; err != nil {
		return err
	}
	result := db.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&iam.OrgAssignment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NotFound("assignment", id)
	}
	return nil
}
