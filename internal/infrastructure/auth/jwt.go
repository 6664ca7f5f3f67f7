package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access from refresh tokens
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrInvalidClaims      = errors.New("invalid token claims")
	ErrTokenNotYetValid   = errors.New("token is not yet valid")
	ErrMissingTenantID    = errors.New("missing tenant_id in claims")
	ErrMissingUserID      = errors.New("missing user_id in claims")
	ErrMaxRefreshExceeded = errors.New("maximum refresh count exceeded")
	ErrTokenBlacklisted   = errors.New("token has been revoked")
)

// Claims are the custom JWT claims. Refresh tokens carry no permissions.
type Claims struct {
	jwt.RegisteredClaims
	TenantID     string    `json:"tenant_id"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email,omitempty"`
	Permissions  []string  `json:"permissions,omitempty"`
	TokenType    TokenType `json:"token_type"`
	RefreshCount int       `json:"refresh_count,omitempty"`
}

// TokenPair is an access and refresh token issued together
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// JWTService signs and validates HS256 tokens
type JWTService struct {
	accessSecret      []byte
	refreshSecret     []byte
	accessExpiration  time.Duration
	refreshExpiration time.Duration
	issuer            string
	maxRefreshCount   int
	now               func() time.Time
}

// NewJWTService creates a JWT service. The access secret signs refresh tokens
// when no refresh secret is configured.
func NewJWTService(cfg config.JWTConfig) *JWTService {
	refreshSecret := []byte(cfg.RefreshSecret)
	if cfg.RefreshSecret == "" {
		refreshSecret = []byte(cfg.Secret)
	}
	return &JWTService{
		accessSecret:      []byte(cfg.Secret),
		refreshSecret:     refreshSecret,
		accessExpiration:  cfg.AccessTokenExpiration,
		refreshExpiration: cfg.RefreshTokenExpiration,
		issuer:            cfg.Issuer,
		maxRefreshCount:   cfg.MaxRefreshCount,
		now:               time.Now,
	}
}

// GenerateTokenInput describes the subject of a new token pair
type GenerateTokenInput struct {
	TenantID    uuid.UUID
	UserID      uuid.UUID
	Email       string
	Permissions []string
}

// GenerateTokenPair issues a fresh access and refresh token
func (s *JWTService) GenerateTokenPair(input GenerateTokenInput) (*TokenPair, error) {
	return s.issue(input, 0)
}

// RefreshTokenPair validates a refresh token and rotates it. The new access
// token carries permissions as given, so callers pass the current grants.
func (s *JWTService) RefreshTokenPair(refreshToken string, permissions []string) (*TokenPair, error) {
	claims, err := s.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if s.maxRefreshCount > 0 && claims.RefreshCount >= s.maxRefreshCount {
		return nil, ErrMaxRefreshExceeded
	}
	tenantID, err := claims.GetTenantUUID()
	if err != nil {
		return nil, ErrInvalidClaims
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, ErrInvalidClaims
	}
	return s.issue(GenerateTokenInput{
		TenantID:    tenantID,
		UserID:      userID,
		Email:       claims.Email,
		Permissions: permissions,
	}, claims.RefreshCount+1)
}

func (s *JWTService) issue(input GenerateTokenInput, refreshCount int) (*TokenPair, error) {
	now := s.now()
	access := s.claims(input, TokenTypeAccess, now, s.accessExpiration)
	access.Permissions = input.Permissions
	accessToken, err := sign(access, s.accessSecret)
	if err != nil {
		return nil, err
	}

	refresh := s.claims(input, TokenTypeRefresh, now, s.refreshExpiration)
	refresh.RefreshCount = refreshCount
	refreshToken, err := sign(refresh, s.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  now.Add(s.accessExpiration),
		RefreshTokenExpiresAt: now.Add(s.refreshExpiration),
		TokenType:             "Bearer",
	}, nil
}

func (s *JWTService) claims(input GenerateTokenInput, typ TokenType, now time.Time, ttl time.Duration) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   input.UserID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		TenantID:  input.TenantID.String(),
		UserID:    input.UserID.String(),
		Email:     input.Email,
		TokenType: typ,
	}
}

func sign(claims *Claims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateAccessToken validates an access token and returns its claims
func (s *JWTService) ValidateAccessToken(token string) (*Claims, error) {
	return s.validate(token, s.accessSecret, TokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token and returns its claims
func (s *JWTService) ValidateRefreshToken(token string) (*Claims, error) {
	return s.validate(token, s.refreshSecret, TokenTypeRefresh)
}

func (s *JWTService) validate(tokenString string, secret []byte, expected TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.TokenType != expected {
		return nil, ErrInvalidTokenType
	}
	if claims.TenantID == "" {
		return nil, ErrMissingTenantID
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	return claims, nil
}

// GetTenantUUID parses the tenant id claim
func (c *Claims) GetTenantUUID() (uuid.UUID, error) {
	return uuid.Parse(c.TenantID)
}

// GetUserUUID parses the user id claim
func (c *Claims) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// HasPermission reports whether the token grants permission
func (c *Claims) HasPermission(permission string) bool {
	return slices.Contains(c.Permissions, permission)
}

// HasAnyPermission reports whether the token grants at least one of permissions
func (c *Claims) HasAnyPermission(permissions ...string) bool {
	return slices.ContainsFunc(permissions, c.HasPermission)
}

// GetIssuedAtTime returns the issued-at time, or the zero time when absent
func (c *Claims) GetIssuedAtTime() time.Time {
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

// GetRemainingTTL returns how long the token stays valid
func (c *Claims) GetRemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}
