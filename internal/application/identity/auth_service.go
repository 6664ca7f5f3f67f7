package identity

import (
	"context"
	"errors"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/identity"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	entityUser = "users"

	auditActionLogin  = "auth.login"
	auditActionLogout = "auth.logout"
)

// PasswordHasher hashes and checks passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

var errInvalidCredentials = shared.NewDomainError(shared.CodeUnauthorized, "invalid email or password")

// AuthService handles login, token refresh, logout and the current user
type AuthService struct {
	txScope   core.TransactionScope
	authz     *appiam.Authorizer
	tokens    *auth.JWTService
	hasher    PasswordHasher
	blacklist auth.TokenBlacklist
	tenantID  uuid.UUID
	logger    *zap.Logger
}

// NewAuthService creates a new AuthService. Only users of tenantID may sign in.
func NewAuthService(
	txScope core.TransactionScope,
	authz *appiam.Authorizer,
	tokens *auth.JWTService,
	hasher PasswordHasher,
	blacklist auth.TokenBlacklist,
	tenantID uuid.UUID,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		txScope:   txScope,
		authz:     authz,
		tokens:    tokens,
		hasher:    hasher,
		blacklist: blacklist,
		tenantID:  tenantID,
		logger:    logger,
	}
}

// Login checks the credentials and issues a token pair carrying the user's permissions
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email, err := identity.NormalizeEmail(input.Email)
	if err != nil {
		return nil, errInvalidCredentials
	}

	var (
		user  *identity.User
		perms []string
	)
	err = s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		user, err = repos.UserRepo().FindByEmail(ctx, email)
		if errors.Is(err, shared.ErrNotFound) {
			return errInvalidCredentials
		}
		if err != nil {
			return err
		}
		if user.TenantID != s.tenantID || !s.hasher.Verify(user.PasswordHash, input.Password) {
			return errInvalidCredentials
		}
		if !user.IsActive {
			return shared.NewDomainError(shared.CodeForbidden, "account is deactivated")
		}
		perms, err = s.authz.UserPermissions(ctx, repos, user.TenantID, user.ID)
		if err != nil {
			return err
		}
		actor := core.NewActor(user.TenantID, user.ID).WithRequest(input.IP, "")
		return core.RecordAudit(ctx, repos, actor, auditActionLogin, entityUser, user.ID, nil, nil)
	})
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			s.logger.Warn("Login rejected", zap.String("email", email), zap.String("ip", input.IP))
		}
		return nil, err
	}

	pair, err := s.tokens.GenerateTokenPair(auth.GenerateTokenInput{
		TenantID:    user.TenantID,
		UserID:      user.ID,
		Email:       user.Email,
		Permissions: perms,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("User logged in",
		zap.String("tenant_id", user.TenantID.String()),
		zap.String("user_id", user.ID.String()))
	return &LoginResult{TokenResult: toTokenResult(pair), User: ToUserDTO(user), Permissions: perms}, nil
}

// Refresh rotates a refresh token. The old refresh token is revoked and the
// new access token carries the user's current permissions.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenResult, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, tokenError(err)
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	tenantID, _ := claims.GetTenantUUID()
	userID, err := claims.GetUserUUID()
	if err != nil || tenantID != s.tenantID {
		return nil, tokenError(auth.ErrInvalidClaims)
	}

	var perms []string
	err = s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		user, err := repos.UserRepo().FindByID(ctx, tenantID, userID)
		if errors.Is(err, shared.ErrNotFound) {
			return tokenError(auth.ErrInvalidClaims)
		}
		if err != nil {
			return err
		}
		if !user.IsActive {
			return shared.NewDomainError(shared.CodeForbidden, "account is deactivated")
		}
		perms, err = s.authz.UserPermissions(ctx, repos, tenantID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.RefreshTokenPair(refreshToken, perms)
	if err != nil {
		return nil, tokenError(err)
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		return nil, err
	}
	result := toTokenResult(pair)
	return &result, nil
}

// Logout revokes the caller's access token and, when given, their refresh token
func (s *AuthService) Logout(ctx context.Context, actor core.Actor, input LogoutInput) error {
	if input.AccessJTI != "" {
		if err := s.blacklist.Revoke(ctx, input.AccessJTI, input.AccessTTL); err != nil {
			return err
		}
	}
	if input.RefreshToken != "" {
		claims, err := s.tokens.ValidateRefreshToken(input.RefreshToken)
		if err == nil && claims.UserID == actor.UserID.String() {
			if err := s.blacklist.Revoke(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
				return err
			}
		}
	}
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		return core.RecordAudit(ctx, repos, actor, auditActionLogout, entityUser, actor.UserID, nil, nil)
	})
	if err != nil {
		return err
	}
	s.logger.Info("User logged out", zap.String("user_id", actor.UserID.String()))
	return nil
}

// Me returns the actor's account, assignments and permissions
func (s *AuthService) Me(ctx context.Context, actor core.Actor) (*MeDTO, error) {
	var dto MeDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		user, err := repos.UserRepo().FindByID(ctx, actor.TenantID, actor.UserID)
		if err != nil {
			return err
		}
		assignments, err := repos.AssignmentRepo().FindByUser(ctx, actor.TenantID, actor.UserID)
		if err != nil {
			return err
		}
		roleNames := map[uuid.UUID]string{}
		dto.Assignments = make([]MeAssignment, 0, len(assignments))
		for i := range assignments {
			a := &assignments[i]
			name, ok := roleNames[a.RoleID]
			if !ok {
				role, err := repos.RoleRepo().FindByID(ctx, actor.TenantID, a.RoleID)
				if err != nil {
					return err
				}
				name = role.Name
				roleNames[a.RoleID] = name
			}
			dto.Assignments = append(dto.Assignments, MeAssignment{AssignmentDTO: appiam.ToAssignmentDTO(a), RoleName: name})
		}
		dto.Permissions, err = s.authz.UserPermissions(ctx, repos, actor.TenantID, actor.UserID)
		if err != nil {
			return err
		}
		dto.User = ToUserDTO(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Authenticate validates an access token for a request and resolves its actor.
// Revoked tokens, tokens of deactivated sessions and tokens of another tenant
// are rejected.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (core.Actor, *auth.Claims, error) {
	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return core.Actor{}, nil, tokenError(err)
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return core.Actor{}, nil, err
	}
	tenantID, err := claims.GetTenantUUID()
	if err != nil {
		return core.Actor{}, nil, tokenError(auth.ErrInvalidClaims)
	}
	if tenantID != s.tenantID {
		return core.Actor{}, nil, shared.NewDomainError(shared.CodeUnauthorized, "token was issued for another tenant")
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		return core.Actor{}, nil, tokenError(auth.ErrInvalidClaims)
	}
	return core.NewActor(tenantID, userID), claims, nil
}

func (s *AuthService) checkRevoked(ctx context.Context, claims *auth.Claims) error {
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if !revoked {
		revoked, err = s.blacklist.IsUserRevoked(ctx, claims.UserID, claims.GetIssuedAtTime())
		if err != nil {
			return err
		}
	}
	if revoked {
		return tokenError(auth.ErrTokenBlacklisted)
	}
	return nil
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError(shared.CodeUnauthorized, "token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError(shared.CodeUnauthorized, "maximum token refresh count exceeded, please log in again")
	case errors.Is(err, auth.ErrTokenBlacklisted):
		return shared.NewDomainError(shared.CodeUnauthorized, "token has been revoked")
	default:
		return shared.NewDomainError(shared.CodeUnauthorized, "invalid token")
	}
}

func toTokenResult(pair *auth.TokenPair) TokenResult {
	return TokenResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}
}
