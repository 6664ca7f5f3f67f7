package iam

import (
	"context"
	"slices"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PermissionCache caches each user's permission codes for a short time.
// Implementations must treat InvalidateTenant as dropping every entry of the tenant.
type PermissionCache interface {
	Get(ctx context.Context, tenantID, userID uuid.UUID) ([]string, bool, error)
	Set(ctx context.Context, tenantID, userID uuid.UUID, codes []string) error
	InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error
}

// Authorizer answers permission and org-scope questions for an actor.
// Org-scope checks read through the caller's transaction. Permission codes
// may be served from the cache, so only a cache miss sees grants made
// earlier in the same transaction.
type Authorizer struct {
	cache  PermissionCache
	logger *zap.Logger
}

// NewAuthorizer creates an authorizer. cache may be nil.
func NewAuthorizer(cache PermissionCache, logger *zap.Logger) *Authorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authorizer{cache: cache, logger: logger}
}

// UserPermissions returns the distinct permission codes granted to the user across all assignments
func (a *Authorizer) UserPermissions(ctx context.Context, repos core.TransactionalRepositories, tenantID, userID uuid.UUID) ([]string, error) {
	if a.cache != nil {
		codes, ok, err := a.cache.Get(ctx, tenantID, userID)
		if err != nil {
			a.logger.Warn("permission cache read failed", zap.Error(err))
		} else if ok {
			return codes, nil
		}
	}

	codes, err := repos.PermissionRepo().FindCodesForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	slices.Sort(codes)
	codes = slices.Compact(codes)

	if a.cache != nil {
		if err := a.cache.Set(ctx, tenantID, userID, codes); err != nil {
			a.logger.Warn("permission cache write failed", zap.Error(err))
		}
	}
	return codes, nil
}

// HasPermission reports whether the actor holds code
func (a *Authorizer) HasPermission(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, code string) (bool, error) {
	codes, err := a.UserPermissions(ctx, repos, actor.TenantID, actor.UserID)
	if err != nil {
		return false, err
	}
	return slices.Contains(codes, code), nil
}

// RequirePermission fails with FORBIDDEN when the actor does not hold code
func (a *Authorizer) RequirePermission(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, code string) error {
	ok, err := a.HasPermission(ctx, repos, actor, code)
	if err != nil {
		return err
	}
	if !ok {
		return shared.Errorf(shared.CodeForbidden, "missing permission: %s", code)
	}
	return nil
}

// HasOrgAccess reports whether any of the actor's assignments covers target
func (a *Authorizer) HasOrgAccess(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, target uuid.UUID) (bool, error) {
	assignments, err := repos.AssignmentRepo().FindByUser(ctx, actor.TenantID, actor.UserID)
	if err != nil {
		return false, err
	}
	if len(assignments) == 0 {
		return false, nil
	}

	// Exact and custom matches need no hierarchy lookup
	needsAncestors := false
	for i := range assignments {
		if assignments[i].Covers(target, nil) {
			return true, nil
		}
		if assignments[i].ScopeType == iam.ScopeSubtree {
			needsAncestors = true
		}
	}
	if !needsAncestors {
		return false, nil
	}

	ancestors, err := repos.OrgUnitRepo().FindAncestors(ctx, actor.TenantID, target)
	if err != nil {
		return false, err
	}
	ancestorIDs := make([]uuid.UUID, 0, len(ancestors))
	for _, u := range ancestors {
		ancestorIDs = append(ancestorIDs, u.ID)
	}
	for i := range assignments {
		if assignments[i].Covers(target, ancestorIDs) {
			return true, nil
		}
	}
	return false, nil
}

// RequireOrgAccess fails with FORBIDDEN when the actor has no assignment covering target
func (a *Authorizer) RequireOrgAccess(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, target uuid.UUID) error {
	ok, err := a.HasOrgAccess(ctx, repos, actor, target)
	if err != nil {
		return err
	}
	if !ok {
		return shared.Errorf(shared.CodeForbidden, "no access to org unit %s", target)
	}
	return nil
}

// ValidateOrgAccess checks that the actor holds code and can reach target
func (a *Authorizer) ValidateOrgAccess(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, target uuid.UUID, code string) error {
	if err := a.RequirePermission(ctx, repos, actor, code); err != nil {
		return err
	}
	return a.RequireOrgAccess(ctx, repos, actor, target)
}

// AccessibleOrgUnits returns the union of org units covered by the user's assignments
func (a *Authorizer) AccessibleOrgUnits(ctx context.Context, repos core.TransactionalRepositories, tenantID, userID uuid.UUID) ([]uuid.UUID, error) {
	assignments, err := repos.AssignmentRepo().FindByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{})
	out := make([]uuid.UUID, 0)
	add := func(id uuid.UUID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, as := range assignments {
		switch as.ScopeType {
		case iam.ScopeSelf:
			add(as.OrgUnitID)
		case iam.ScopeSubtree:
			add(as.OrgUnitID)
			descendants, err := repos.OrgUnitRepo().FindDescendantIDs(ctx, tenantID, as.OrgUnitID)
			if err != nil {
				return nil, err
			}
			for _, id := range descendants {
				add(id)
			}
		case iam.ScopeCustomSet:
			for _, id := range as.CustomOrgUnitIDs {
				add(id)
			}
		}
	}
	return out, nil
}

// Invalidate drops cached permissions of the tenant. Call it after the
// transaction that changed roles or assignments has committed.
func (a *Authorizer) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	if a.cache == nil {
		return
	}
	if err := a.cache.InvalidateTenant(ctx, tenantID); err != nil {
		a.logger.Warn("permission cache invalidation failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}
}
