package persistence

import (
	"context"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/report"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormExportRepository implements report.ExportRepository using GORM
type GormExportRepository struct {
	db *gorm.DB
}

// NewGormExportRepository creates a new GormExportRepository
func NewGormExportRepository(db *gorm.DB) *GormExportRepository {
	return &GormExportRepository{db: db}
}

var _ report.ExportRepository = (*GormExportRepository)(nil)

func (r *GormExportRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*report.ExportJob, error) {
	var j report.ExportJob
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&j).Error; err != nil {
		return nil, notFound(err, "export job", id)
	}
	return &j, nil
}

// FindForUser only returns exports requested by userID
func (r *GormExportRepository) FindForUser(ctx context.Context, tenantID, userID, id uuid.UUID) (*report.ExportJob, error) {
	var j report.ExportJob
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ? AND id = ?", tenantID, userID, id).
		First(&j).Error; err != nil {
		return nil, notFound(err, "export job", id)
	}
	return &j, nil
}

func (r *GormExportRepository) Save(ctx context.Context, j *report.ExportJob) error {
	return r.db.WithContext(ctx).Save(j).Error
}

// GormTemplateRepository implements report.TemplateRepository using GORM
type GormTemplateRepository struct {
	db *gorm.DB
}

// NewGormTemplateRepository creates a new GormTemplateRepository
func NewGormTemplateRepository(db *gorm.DB) *GormTemplateRepository {
	return &GormTemplateRepository{db: db}
}

var _ report.TemplateRepository = (*GormTemplateRepository)(nil)

func (r *GormTemplateRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*report.Template, error) {
	var t report.Template
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&t).Error; err != nil {
		return nil, notFound(err, "report template", id)
	}
	return &t, nil
}

// FindVisible lists own and shared templates; unit-level sharing is checked by the caller
func (r *GormTemplateRepository) FindVisible(ctx context.Context, tenantID, userID uuid.UUID) ([]report.Template, error) {
	var list []report.Template
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND (user_id = ? OR is_shared = ?)", tenantID, userID, true).
		Order("name ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormTemplateRepository) Save(ctx context.Context, t *report.Template) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *GormTemplateRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return deleteScoped(ctx, r.db, &report.Template{}, tenantID, id, "report template")
}

// GormScheduleRepository implements report.ScheduleRepository using GORM
type GormScheduleRepository struct {
	db *gorm.DB
}

// NewGormScheduleRepository creates a new GormScheduleRepository
func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

var _ report.ScheduleRepository = (*GormScheduleRepository)(nil)

func (r *GormScheduleRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*report.Schedule, error) {
	var s report.Schedule
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&s).Error; err != nil {
		return nil, notFound(err, "report schedule", id)
	}
	return &s, nil
}

func (r *GormScheduleRepository) FindByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]report.Schedule, error) {
	var list []report.Schedule
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Order("next_run_at ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// FindDue claims due schedules; rows locked by another runner are skipped
func (r *GormScheduleRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]report.Schedule, error) {
	var list []report.Schedule
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("is_active = ? AND next_run_at <= ?", true, now).
		Order("next_run_at ASC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormScheduleRepository) Save(ctx context.Context, s *report.Schedule) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *GormScheduleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return deleteScoped(ctx, r.db, &report.Schedule{}, tenantID, id, "report schedule")
}
