package iam

import (
	"context"
	"errors"
	"testing"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/persistence"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAssignmentService_Lifecycle(t *testing.T) {
	db := testutil.NewTestDB(t)
	tr := seedTree(t, db)
	ctx := context.Background()
	admin := core.NewActor(tr.tenant.ID, tr.tenant.AdminID)

	cache := new(MockPermissionCache)
	cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(nil, false, nil)
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	cache.On("InvalidateTenant", mock.Anything, tr.tenant.ID).Return(nil)

	authz := NewAuthorizer(cache, zap.NewNop())
	scope := persistence.NewGormTransactionScope(db)
	svc := NewAssignmentService(scope, authz, zap.NewNop())
	roles := NewRoleService(scope, authz, zap.NewNop())

	role, err := roles.Create(ctx, admin, "Group Pastor")
	require.NoError(t, err)
	user := testutil.CreateUser(t, db, tr.tenant.ID, "pastor@example.org")

	created, err := svc.Create(ctx, admin, CreateAssignmentInput{
		UserID:           user.ID,
		OrgUnitID:        tr.group.ID,
		RoleID:           role.ID,
		ScopeType:        "custom_set",
		CustomOrgUnitIDs: []uuid.UUID{tr.church.ID, tr.other.ID, tr.church.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{tr.church.ID, tr.other.ID}, created.CustomOrgUnitIDs)
	cache.AssertCalled(t, "InvalidateTenant", mock.Anything, tr.tenant.ID)

	t.Run("duplicate user and unit", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, CreateAssignmentInput{
			UserID: user.ID, OrgUnitID: tr.group.ID, RoleID: role.ID, ScopeType: "self",
		})
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
	})

	t.Run("custom units", func(t *testing.T) {
		_, err := svc.AddCustomUnit(ctx, admin, created.ID, tr.other.ID)
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))

		updated, err := svc.AddCustomUnit(ctx, admin, created.ID, tr.zone.ID)
		require.NoError(t, err)
		assert.Len(t, updated.CustomOrgUnitIDs, 3)

		require.NoError(t, svc.RemoveCustomUnit(ctx, admin, created.ID, tr.church.ID))
		err = svc.RemoveCustomUnit(ctx, admin, created.ID, tr.church.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("leaving custom set clears units", func(t *testing.T) {
		scopeType := "subtree"
		updated, err := svc.Update(ctx, admin, created.ID, UpdateAssignmentInput{ScopeType: &scopeType})
		require.NoError(t, err)
		assert.Empty(t, updated.CustomOrgUnitIDs)

		_, err = svc.AddCustomUnit(ctx, admin, created.ID, tr.church.ID)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("role in use cannot be deleted", func(t *testing.T) {
		err := roles.Delete(ctx, admin, role.ID)
		assert.True(t, errors.Is(err, shared.ErrHasDependents))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, admin, created.ID))
		list, err := svc.ListForUser(ctx, admin, user.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
		require.NoError(t, roles.Delete(ctx, admin, role.ID))
	})
}

func TestAssignmentService_ScopeOfTheActor(t *testing.T) {
	db := testutil.NewTestDB(t)
	tr := seedTree(t, db)
	ctx := context.Background()
	scope := persistence.NewGormTransactionScope(db)
	svc := NewAssignmentService(scope, NewAuthorizer(nil, zap.NewNop()), zap.NewNop())

	// A group admin may assign inside the group but not at its sibling
	groupAdmin := testutil.CreateUser(t, db, tr.tenant.ID, "group-admin@example.org")
	roleID := testutil.Grant(t, db, tr.tenant.ID, groupAdmin.ID, tr.group.ID, iam.ScopeSubtree, iam.PermUsersAssign)
	actor := core.NewActor(tr.tenant.ID, groupAdmin.ID)
	member := testutil.CreateUser(t, db, tr.tenant.ID, "member@example.org")

	_, err := svc.Create(ctx, actor, CreateAssignmentInput{
		UserID: member.ID, OrgUnitID: tr.church.ID, RoleID: roleID, ScopeType: "self",
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, actor, CreateAssignmentInput{
		UserID: member.ID, OrgUnitID: tr.other.ID, RoleID: roleID, ScopeType: "self",
	})
	assert.True(t, errors.Is(err, shared.ErrForbidden))

	_, err = svc.Create(ctx, actor, CreateAssignmentInput{
		UserID: member.ID, OrgUnitID: tr.group.ID, RoleID: roleID, ScopeType: "custom_set",
		CustomOrgUnitIDs: []uuid.UUID{tr.other.ID},
	})
	assert.True(t, errors.Is(err, shared.ErrForbidden), "every custom unit must be reachable")

	result, err := svc.CreateBulk(ctx, actor, []CreateAssignmentInput{
		{UserID: member.ID, OrgUnitID: tr.group.ID, RoleID: roleID, ScopeType: "self"},
		{UserID: member.ID, OrgUnitID: tr.zone.ID, RoleID: roleID, ScopeType: "self"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Created, 1)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, tr.zone.ID, result.Failed[0].Input.OrgUnitID)
}

func TestRoleService_Permissions(t *testing.T) {
	db := testutil.NewTestDB(t)
	tenant := testutil.SeedTenant(t, db)
	ctx := context.Background()
	admin := core.NewActor(tenant.ID, tenant.AdminID)
	scope := persistence.NewGormTransactionScope(db)
	roles := NewRoleService(scope, NewAuthorizer(nil, zap.NewNop()), zap.NewNop())
	perms := NewPermissionService(scope)

	all, err := perms.List(ctx, "finance")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(all), 2)
	for _, p := range all {
		assert.Equal(t, "finance", p.Module)
	}

	role, err := roles.Create(ctx, admin, "Treasurer")
	require.NoError(t, err)
	_, err = roles.Create(ctx, admin, "treasurer")
	assert.True(t, errors.Is(err, shared.ErrAlreadyExists))

	linked, err := roles.AssignPermissions(ctx, admin, role.ID, []uuid.UUID{all[0].ID, all[1].ID})
	require.NoError(t, err)
	assert.Len(t, linked, 2)

	// Re-assigning is idempotent
	linked, err = roles.AssignPermissions(ctx, admin, role.ID, []uuid.UUID{all[0].ID})
	require.NoError(t, err)
	assert.Len(t, linked, 2)

	_, err = roles.AssignPermissions(ctx, admin, role.ID, []uuid.UUID{uuid.New()})
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	replaced, err := roles.ReplacePermissions(ctx, admin, role.ID, []uuid.UUID{all[1].ID})
	require.NoError(t, err)
	require.Len(t, replaced, 1)
	assert.Equal(t, all[1].ID, replaced[0].ID)

	require.NoError(t, roles.RemovePermission(ctx, admin, role.ID, all[1].ID))
	err = roles.RemovePermission(ctx, admin, role.ID, all[1].ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	// two links added, one removed by replace, one removed explicitly
	assert.Equal(t, int64(2), countAudit(t, db, entityRolePermission, iam.AuditActionCreate))
	assert.Equal(t, int64(2), countAudit(t, db, entityRolePermission, iam.AuditActionDelete))
}
