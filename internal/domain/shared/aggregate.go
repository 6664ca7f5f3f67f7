package shared

import (
	"github.com/google/uuid"
)

// AggregateRoot is an entity that guards its own invariants and is
// persisted with optimistic locking.
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
}

// TenantAggregateRoot is a tenant-scoped aggregate with a version counter
type TenantAggregateRoot struct {
	TenantEntity
	Version int `gorm:"not null;default:1"`
}

// GetVersion returns the aggregate version for optimistic locking
func (a *TenantAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number
func (a *TenantAggregateRoot) IncrementVersion() {
	a.Version++
	a.Touch()
}

// NewTenantAggregateRoot creates a new tenant-scoped aggregate root
func NewTenantAggregateRoot(tenantID, createdBy uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		TenantEntity: NewTenantEntity(tenantID, createdBy),
		Version:      1,
	}
}
