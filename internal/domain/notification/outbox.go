package notification

import (
	"context"
	"math"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Notification types
const (
	TypeInvite          = "invite"
	TypeScheduledReport = "scheduled_report"
	TypeImportFinished  = "import_finished"
)

// DeliveryState of an outbox notification
type DeliveryState string

const (
	StatePending DeliveryState = "pending"
	StateSent    DeliveryState = "sent"
	StateFailed  DeliveryState = "failed"
)

// OutboxNotification is a durable message awaiting delivery
type OutboxNotification struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID      `gorm:"type:uuid;not null;index"`
	Type          string         `gorm:"type:varchar(50);not null"`
	Payload       map[string]any `gorm:"serializer:json;type:jsonb;not null"`
	DeliveryState DeliveryState  `gorm:"type:varchar(20);not null;default:'pending';index:idx_outbox_due"`
	RetryCount    int            `gorm:"not null;default:0"`
	LastError     *string        `gorm:"type:varchar(500)"`
	NextAttemptAt time.Time      `gorm:"not null;index:idx_outbox_due"`
	SentAt        *time.Time
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OutboxNotification) TableName() string {
	return "outbox_notifications"
}

// NewOutboxNotification creates a pending notification due immediately
func NewOutboxNotification(tenantID uuid.UUID, notificationType string, payload map[string]any) *OutboxNotification {
	now := time.Now().UTC()
	if payload == nil {
		payload = map[string]any{}
	}
	return &OutboxNotification{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Type:          notificationType,
		Payload:       payload,
		DeliveryState: StatePending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

const maxErrorBytes = 500

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// MarkSent records a successful delivery
func (n *OutboxNotification) MarkSent(at time.Time) {
	n.DeliveryState = StateSent
	n.SentAt = &at
	n.LastError = nil
	n.UpdatedAt = at
}

// MarkFailed records a failed attempt. The notification is retried after
// base * 2^(retry_count-1) until maxRetries attempts have failed, then it stays failed.
func (n *OutboxNotification) MarkFailed(err error, at time.Time, base time.Duration, maxRetries int) {
	msg := truncate(err.Error(), maxErrorBytes)
	n.LastError = &msg
	n.RetryCount++
	n.UpdatedAt = at
	if n.RetryCount >= maxRetries {
		n.DeliveryState = StateFailed
		return
	}
	n.DeliveryState = StatePending
	n.NextAttemptAt = at.Add(Backoff(base, n.RetryCount))
}

// Backoff returns base * 2^(attempt-1)
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
}

// OutboxRepository persists outbox notifications
type OutboxRepository interface {
	Save(ctx context.Context, n *OutboxNotification) error

	// ClaimDue locks up to limit pending notifications due before now, skipping
	// rows locked by other processors. Must run inside a transaction.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*OutboxNotification, error)
	Update(ctx context.Context, n *OutboxNotification) error
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxNotification, error)
	CountByState(ctx context.Context, state DeliveryState) (int64, error)
}
