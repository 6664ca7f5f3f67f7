package identity

import (
	"context"
	"net/mail"
	"strings"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// User is an account that can sign in
type User struct {
	shared.TenantEntity
	Email        string `gorm:"type:varchar(320);not null;uniqueIndex"`
	PasswordHash string `gorm:"type:varchar(255)"`
	IsActive     bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "users"
}

// NewUser creates an active user with an already hashed password
func NewUser(tenantID, createdBy uuid.UUID, email, passwordHash string) (*User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return &User{
		TenantEntity: shared.NewTenantEntity(tenantID, createdBy),
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
	}, nil
}

// NormalizeEmail validates and lower-cases an email address
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", shared.Errorf(shared.CodeInvalidInput, "invalid email %q", email)
	}
	return email, nil
}

// Deactivate prevents further logins
func (u *User) Deactivate() {
	u.IsActive = false
	u.Touch()
}

// UserRepository persists users
type UserRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]User, error)
	Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
	Save(ctx context.Context, user *User) error
}
