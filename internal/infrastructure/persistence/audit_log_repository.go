package persistence

import (
	"context"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditLogRepository implements iam.AuditLogRepository using GORM
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

var _ iam.AuditLogRepository = (*GormAuditLogRepository)(nil)

// Create appends an audit record
func (r *GormAuditLogRepository) Create(ctx context.Context, log *iam.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// FindByID finds one audit record
func (r *GormAuditLogRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*iam.AuditLog, error) {
	var log iam.AuditLog
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&log).Error; err != nil {
		return nil, notFound(err, "audit log", id)
	}
	return &log, nil
}

// FindAll lists audit records newest first together with the total match count
func (r *GormAuditLogRepository) FindAll(ctx context.Context, tenantID uuid.UUID, f iam.AuditLogFilter) ([]iam.AuditLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&iam.AuditLog{}).Where("tenant_id = ?", tenantID)
	if f.ActorID != nil {
		query = query.Where("actor_id = ?", *f.ActorID)
	}
	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}
	if f.EntityType != "" {
		query = query.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != nil {
		query = query.Where("entity_id = ?", *f.EntityID)
	}
	if f.From != nil {
		query = query.Where("occurred_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("occurred_at <= ?", *f.To)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []iam.AuditLog
	if err := paginate(query.Order("occurred_at DESC"), f.Page, f.PageSize).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
