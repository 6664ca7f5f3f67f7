package iam

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit actions shared by every module
const (
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
)

// AuditLog is an append-only record of a mutation
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index"`
	Action     string     `gorm:"type:varchar(50);not null;index"`
	EntityType string     `gorm:"type:varchar(50);not null;index:idx_audit_logs_entity"`
	EntityID   *uuid.UUID `gorm:"type:uuid;index:idx_audit_logs_entity"`
	BeforeJSON *string    `gorm:"column:before_json;type:jsonb"`
	AfterJSON  *string    `gorm:"column:after_json;type:jsonb"`
	IP         string     `gorm:"column:ip;type:varchar(64)"`
	UserAgent  string     `gorm:"type:varchar(512)"`
	OccurredAt time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog builds an audit row. before and after are marshalled to JSON when non-nil.
func NewAuditLog(tenantID uuid.UUID, actorID uuid.UUID, action, entityType string, entityID *uuid.UUID, before, after any) (*AuditLog, error) {
	log := &AuditLog{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}
	if actorID != uuid.Nil {
		log.ActorID = &actorID
	}
	var err error
	if log.BeforeJSON, err = marshalSnapshot(before); err != nil {
		return nil, err
	}
	if log.AfterJSON, err = marshalSnapshot(after); err != nil {
		return nil, err
	}
	return log, nil
}

// WithRequest attaches the caller's address and user agent
func (l *AuditLog) WithRequest(ip, userAgent string) *AuditLog {
	l.IP = ip
	if len(userAgent) > 512 {
		userAgent = userAgent[:512]
	}
	l.UserAgent = userAgent
	return l
}

func marshalSnapshot(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}
