package persistence

import (
	"context"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/notification"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOutboxRepository implements notification.OutboxRepository using GORM
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository creates a new GormOutboxRepository
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

var _ notification.OutboxRepository = (*GormOutboxRepository)(nil)

func (r *GormOutboxRepository) Save(ctx context.Context, n *notification.OutboxNotification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// ClaimDue locks due pending rows with SKIP LOCKED so parallel processors never
// deliver the same notification twice
func (r *GormOutboxRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*notification.OutboxNotification, error) {
	var list []*notification.OutboxNotification
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("delivery_state = ? AND next_attempt_at <= ?", notification.StatePending, now).
		Order("next_attempt_at ASC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormOutboxRepository) Update(ctx context.Context, n *notification.OutboxNotification) error {
	return r.db.WithContext(ctx).Save(n).Error
}

func (r *GormOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*notification.OutboxNotification, error) {
	var n notification.OutboxNotification
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "notification", id)
	}
	return &n, nil
}

func (r *GormOutboxRepository) CountByState(ctx context.Context, state notification.DeliveryState) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&notification.OutboxNotification{}).
		Where("delivery_state = ?", state).
		Count(&count).Error
	return count, err
}
