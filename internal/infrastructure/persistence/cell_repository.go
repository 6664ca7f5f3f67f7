package persistence

import (
	"context"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/cells"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCellRepository implements cells.CellRepository using GORM
type GormCellRepository struct {
	db *gorm.DB
}

// NewGormCellRepository creates a new GormCellRepository
func NewGormCellRepository(db *gorm.DB) *GormCellRepository {
	return &GormCellRepository{db: db}
}

var _ cells.CellRepository = (*GormCellRepository)(nil)

func (r *GormCellRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*cells.Cell, error) {
	var c cells.Cell
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&c).Error; err != nil {
		return nil, notFound(err, "cell", id)
	}
	return &c, nil
}

func (r *GormCellRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]cells.Cell, error) {
	var list []cells.Cell
	query := r.applyFilter(r.db.WithContext(ctx).Model(&cells.Cell{}), tenantID, filter)
	query = paginate(query.Order(orderClause(filter.OrderBy, filter.OrderDir, CellSortFields, "name")), filter.Page, filter.PageSize)
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormCellRepository) Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&cells.Cell{}), tenantID, filter).Count(&count).Error
	return count, err
}

// ExistsByName checks for a case-insensitive cell name clash within a unit
func (r *GormCellRepository) ExistsByName(ctx context.Context, tenantID, orgUnitID uuid.UUID, name string, excludeID uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&cells.Cell{}).
		Where("tenant_id = ? AND org_unit_id = ? AND LOWER(name) = LOWER(?)", tenantID, orgUnitID, name)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormCellRepository) Save(ctx context.Context, c *cells.Cell) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *GormCellRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&cells.Cell{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NotFound("cell", id)
	}
	return nil
}

// ReassignLeader replaces a person in both leader slots
func (r *GormCellRepository) ReassignLeader(ctx context.Context, tenantID, fromPersonID, toPersonID uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)
	leaders := db.Model(&cells.Cell{}).
		Where("tenant_id = ? AND leader_id = ?", tenantID, fromPersonID).
		Update("leader_id", toPersonID)
	if leaders.Error != nil {
		return 0, leaders.Error
	}
	assistants := db.Model(&cells.Cell{}).
		Where("tenant_id = ? AND assistant_leader_id = ?", tenantID, fromPersonID).
		Update("assistant_leader_id", toPersonID)
	return leaders.RowsAffected + assistants.RowsAffected, assistants.Error
}

// ClearLeader empties the leader slots held by personID
func (r *GormCellRepository) ClearLeader(ctx context.Context, tenantID, personID uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)
	leaders := db.Model(&cells.Cell{}).
		Where("tenant_id = ? AND leader_id = ?", tenantID, personID).
		Update("leader_id", nil)
	if leaders.Error != nil {
		return 0, leaders.Error
	}
	assistants := db.Model(&cells.Cell{}).
		Where("tenant_id = ? AND assistant_leader_id = ?", tenantID, personID).
		Update("assistant_leader_id", nil)
	return leaders.RowsAffected + assistants.RowsAffected, assistants.Error
}

func (r *GormCellRepository) applyFilter(query *gorm.DB, tenantID uuid.UUID, filter shared.Filter) *gorm.DB {
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
	if leaderID, ok := uuidFilter(filter, "leader_id"); ok {
		query = query.Where("(leader_id = ? OR assistant_leader_id = ?)", leaderID, leaderID)
	}
	return searchColumns(query, filter.Search, "name", "venue")
}

// GormCellReportRepository implements cells.ReportRepository using GORM
type GormCellReportRepository struct {
	db *gorm.DB
}

// NewGormCellReportRepository creates a new GormCellReportRepository
func NewGormCellReportRepository(db *gorm.DB) *GormCellReportRepository {
	return &GormCellReportRepository{db: db}
}

var _ cells.ReportRepository = (*GormCellReportRepository)(nil)

func (r *GormCellReportRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*cells.CellReport, error) {
	var rep cells.CellReport
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&rep).Error; err != nil {
		return nil, notFound(err, "cell report", id)
	}
	return &rep, nil
}

// FindAll lists reports newest first; unit scoping goes through the owning cell
func (r *GormCellReportRepository) FindAll(ctx context.Context, tenantID uuid.UUID, f cells.ReportFilter) ([]cells.CellReport, int64, error) {
	query := r.db.WithContext(ctx).Model(&cells.CellReport{}).Where("cell_reports.tenant_id = ?", tenantID)
	if f.CellID != nil {
		query = query.Where("cell_reports.cell_id = ?", *f.CellID)
	}
	if f.OrgUnitIDs != nil {
		query = query.Joins("JOIN cells ON cells.id = cell_reports.cell_id")
		query = scopeUnits(query, "cells.org_unit_id", f.OrgUnitIDs)
	}
	if f.Status != "" {
		query = query.Where("cell_reports.status = ?", f.Status)
	}
	if f.From != nil {
		query = query.Where("cell_reports.report_date >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("cell_reports.report_date <= ?", *f.To)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []cells.CellReport
	if err := paginate(query.Select("cell_reports.*").Order("cell_reports.report_date DESC"), f.Page, f.PageSize).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ExistsForDate enforces one report per cell per day
func (r *GormCellReportRepository) ExistsForDate(ctx context.Context, tenantID, cellID uuid.UUID, date time.Time, excludeID uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&cells.CellReport{}).
		Where("tenant_id = ? AND cell_id = ? AND report_date = ?", tenantID, cellID, date)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormCellReportRepository) CountByCell(ctx context.Context, tenantID, cellID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&cells.CellReport{}).
		Where("tenant_id = ? AND cell_id = ?", tenantID, cellID).
		Count(&count).Error
	return count, err
}

func (r *GormCellReportRepository) Save(ctx context.Context, rep *cells.CellReport) error {
	return r.db.WithContext(ctx).Save(rep).Error
}

func (r *GormCellReportRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&cells.CellReport{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NotFound("cell report", id)
	}
	return nil
}
