package core

import (
	"github.com/google/uuid"
)

// Actor identifies who performs an operation and from where
type Actor struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	IP        string
	UserAgent string
}

// NewActor creates an actor without request details, e.g. for background jobs
func NewActor(tenantID, userID uuid.UUID) Actor {
	return Actor{TenantID: tenantID, UserID: userID}
}

// WithRequest returns a copy of the actor carrying the caller's address and user agent
func (a Actor) WithRequest(ip, userAgent string) Actor {
	a.IP = ip
	a.UserAgent = userAgent
	return a
}
