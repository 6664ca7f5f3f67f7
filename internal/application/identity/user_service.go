package identity

import (
	"context"
	"errors"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/identity"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/notification"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	oneTimePasswordLength = 14

	auditActionDeactivate = "deactivate"
)

// UserService invites, lists and deactivates users
type UserService struct {
	txScope     core.TransactionScope
	authz       *appiam.Authorizer
	assignments *appiam.AssignmentService
	hasher      PasswordHasher
	blacklist   auth.TokenBlacklist
	sessionTTL  time.Duration
	logger      *zap.Logger
}

// NewUserService creates a new UserService. sessionTTL bounds how long a
// deactivation keeps rejecting tokens issued before it.
func NewUserService(
	txScope core.TransactionScope,
	authz *appiam.Authorizer,
	assignments *appiam.AssignmentService,
	hasher PasswordHasher,
	blacklist auth.TokenBlacklist,
	sessionTTL time.Duration,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		txScope:     txScope,
		authz:       authz,
		assignments: assignments,
		hasher:      hasher,
		blacklist:   blacklist,
		sessionTTL:  sessionTTL,
		logger:      logger,
	}
}

// Invite creates an active user with a one-time password and queues an
// invitation carrying it. An optional first assignment is created in the same
// transaction, subject to the usual scope checks.
func (s *UserService) Invite(ctx context.Context, actor core.Actor, input InviteInput) (*InviteResult, error) {
	email, err := identity.NormalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	password, err := auth.GeneratePassword(oneTimePasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	var result InviteResult
	err = s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermUsersCreate); err != nil {
			return err
		}
		_, err := repos.UserRepo().FindByEmail(ctx, email)
		if err == nil {
			return shared.Errorf(shared.CodeAlreadyExists, "user with email %s already exists", email)
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		user, err := identity.NewUser(actor.TenantID, actor.UserID, email, hash)
		if err != nil {
			return err
		}
		if err := repos.UserRepo().Save(ctx, user); err != nil {
			return err
		}
		result.User = ToUserDTO(user)
		if err := core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityUser, user.ID, nil, result.User); err != nil {
			return err
		}

		if a := input.Assignment; a != nil {
			created, err := s.assignments.CreateInTx(ctx, repos, actor, appiam.CreateAssignmentInput{
				UserID:           user.ID,
				OrgUnitID:        a.OrgUnitID,
				RoleID:           a.RoleID,
				ScopeType:        a.ScopeType,
				CustomOrgUnitIDs: a.CustomOrgUnitIDs,
			})
			if err != nil {
				return err
			}
			result.Assignment = &created
		}

		n := notification.NewOutboxNotification(actor.TenantID, notification.TypeInvite, map[string]any{
			"to":                 email,
			"user_id":            user.ID.String(),
			"invited_by":         actor.UserID.String(),
			"temporary_password": password,
		})
		result.NotificationID = n.ID
		return repos.OutboxRepo().Save(ctx, n)
	})
	if err != nil {
		return nil, err
	}
	if result.Assignment != nil {
		s.authz.Invalidate(ctx, actor.TenantID)
	}
	s.logger.Info("User invited",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("user_id", result.User.ID.String()),
		zap.Bool("with_assignment", result.Assignment != nil))
	return &result, nil
}

// List returns a page of the tenant's users
func (s *UserService) List(ctx context.Context, actor core.Actor, page, pageSize int, search string) (shared.Paginated[UserDTO], error) {
	filter := shared.Filter{Page: page, PageSize: pageSize, OrderBy: "email", OrderDir: "asc", Search: search}.Normalize()
	var result shared.Paginated[UserDTO]
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermUsersRead); err != nil {
			return err
		}
		users, err := repos.UserRepo().FindAll(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		total, err := repos.UserRepo().Count(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		items := make([]UserDTO, 0, len(users))
		for i := range users {
			items = append(items, ToUserDTO(&users[i]))
		}
		result = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	return result, err
}

// Get returns one user
func (s *UserService) Get(ctx context.Context, actor core.Actor, id uuid.UUID) (*UserDTO, error) {
	var dto UserDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermUsersRead); err != nil {
			return err
		}
		user, err := repos.UserRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		dto = ToUserDTO(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Deactivate blocks a user from signing in and revokes their live tokens
func (s *UserService) Deactivate(ctx context.Context, actor core.Actor, id uuid.UUID) (*UserDTO, error) {
	if id == actor.UserID {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "you cannot deactivate your own account")
	}
	var dto UserDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermUsersUpdate); err != nil {
			return err
		}
		user, err := repos.UserRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		before := ToUserDTO(user)
		user.Deactivate()
		if err := repos.UserRepo().Save(ctx, user); err != nil {
			return err
		}
		dto = ToUserDTO(user)
		return core.RecordAudit(ctx, repos, actor, auditActionDeactivate, entityUser, id, before, dto)
	})
	if err != nil {
		return nil, err
	}
	if err := s.blacklist.RevokeUser(ctx, id.String(), s.sessionTTL); err != nil {
		s.logger.Error("Failed to revoke tokens of deactivated user", zap.String("user_id", id.String()), zap.Error(err))
	}
	s.logger.Info("User deactivated",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("user_id", id.String()))
	return &dto, nil
}
