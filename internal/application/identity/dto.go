package identity

import (
	"time"

	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/identity"
	"github.com/google/uuid"
)

// LoginInput contains the credentials for a login
type LoginInput struct {
	Email    string
	Password string
	IP       string
}

// TokenResult is an issued token pair
type TokenResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// LoginResult is a token pair plus the signed-in user
type LoginResult struct {
	TokenResult
	User        UserDTO  `json:"user"`
	Permissions []string `json:"permissions"`
}

// LogoutInput identifies the tokens to revoke. RefreshToken is optional.
type LogoutInput struct {
	AccessJTI    string
	AccessTTL    time.Duration
	RefreshToken string
}

// UserDTO represents a user without credentials
type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToUserDTO converts a domain user
func ToUserDTO(u *identity.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		TenantID:  u.TenantID,
		Email:     u.Email,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// MeAssignment is one of the caller's assignments with its role name
type MeAssignment struct {
	appiam.AssignmentDTO
	RoleName string `json:"role_name"`
}

// MeDTO describes the authenticated user
type MeDTO struct {
	User        UserDTO        `json:"user"`
	Assignments []MeAssignment `json:"assignments"`
	Permissions []string       `json:"permissions"`
}

// InviteInput creates a user and optionally their first assignment
type InviteInput struct {
	Email      string
	Assignment *InviteAssignment
}

// InviteAssignment is the org assignment granted with an invitation
type InviteAssignment struct {
	OrgUnitID        uuid.UUID
	RoleID           uuid.UUID
	ScopeType        string
	CustomOrgUnitIDs []uuid.UUID
}

// InviteResult is the invited user and the assignment created for them
type InviteResult struct {
	User           UserDTO               `json:"user"`
	Assignment     *appiam.AssignmentDTO `json:"assignment,omitempty"`
	NotificationID uuid.UUID             `json:"notification_id"`
}
