package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the base interface for all domain entities
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// BaseEntity provides common fields for all entities
type BaseEntity struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// GetCreatedAt returns the creation timestamp
func (e *BaseEntity) GetCreatedAt() time.Time {
	return e.CreatedAt
}

// GetUpdatedAt returns the last update timestamp
func (e *BaseEntity) GetUpdatedAt() time.Time {
	return e.UpdatedAt
}

// Touch bumps UpdatedAt to now
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}

// NewBaseEntity creates a new base entity with generated ID
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TenantEntity is an entity owned by a single tenant
type TenantEntity struct {
	BaseEntity
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
}

// NewTenantEntity creates a tenant-scoped entity recording who created it
func NewTenantEntity(tenantID, createdBy uuid.UUID) TenantEntity {
	e := TenantEntity{
		BaseEntity: NewBaseEntity(),
		TenantID:   tenantID,
	}
	if createdBy != uuid.Nil {
		e.CreatedBy = &createdBy
	}
	return e
}

// GetTenantID returns the owning tenant
func (t *TenantEntity) GetTenantID() uuid.UUID {
	return t.TenantID
}

// BelongsTo reports whether the entity is owned by tenantID
func (t *TenantEntity) BelongsTo(tenantID uuid.UUID) bool {
	return t.TenantID == tenantID
}
