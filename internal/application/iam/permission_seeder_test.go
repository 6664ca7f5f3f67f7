package iam

import (
	"context"
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

func TestPermissionSeeder_Seed(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	tenantID := uuid.New()
	cache := new(MockPermissionCache)
	cache.On("InvalidateTenant", mock.Anything, tenantID).Return(nil)
	seeder := NewPermissionSeeder(persistence.NewGormTransactionScope(db), NewAuthorizer(cache, zap.NewNop()), zap.NewNop())

	rows := []MatrixRow{
		{RoleName: "Zonal Pastor", Permission: iam.PermFinanceVerify, Granted: true},
		{RoleName: "Zonal Pastor", Permission: iam.PermBatchesLock, Granted: true},
		{RoleName: "Finance Officer", Permission: iam.PermBatchesCreate, Granted: true},
		{RoleName: "Finance Officer", Permission: iam.PermBatchesLock, Granted: false},
		{RoleName: "Cell Leader", Permission: "cells.custom.thing", Granted: false},
	}

	result, err := seeder.Seed(ctx, tenantID, rows)
	require.NoError(t, err)
	assert.Equal(t, &SeedResult{
		Roles:              3,
		Permissions:        4,
		RolesCreated:       3,
		PermissionsCreated: 4,
		LinksCreated:       3,
	}, result)

	scope := persistence.NewGormTransactionScope(db)
	require.NoError(t, scope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		officer, err := repos.RoleRepo().FindByName(ctx, tenantID, "Finance Officer")
		require.NoError(t, err)
		perms, err := repos.RoleRepo().FindPermissions(ctx, officer.ID)
		require.NoError(t, err)
		require.Len(t, perms, 1)
		assert.Equal(t, iam.PermBatchesCreate, perms[0].Code)

		leader, err := repos.RoleRepo().FindByName(ctx, tenantID, "Cell Leader")
		require.NoError(t, err)
		perms, err = repos.RoleRepo().FindPermissions(ctx, leader.ID)
		require.NoError(t, err)
		assert.Empty(t, perms)

		_, err = repos.PermissionRepo().FindByCode(ctx, "cells.custom.thing")
		assert.NoError(t, err)
		return nil
	}))

	t.Run("second run only fills gaps", func(t *testing.T) {
		rows := append(rows, MatrixRow{RoleName: "Finance Officer", Permission: iam.PermEntriesCreate, Granted: true})
		result, err := seeder.Seed(ctx, tenantID, rows)
		require.NoError(t, err)
		assert.Equal(t, 0, result.RolesCreated)
		assert.Equal(t, 1, result.PermissionsCreated)
		assert.Equal(t, 1, result.LinksCreated)
	})

	t.Run("roles are per tenant", func(t *testing.T) {
		other := uuid.New()
		cache.On("InvalidateTenant", mock.Anything, other).Return(nil)
		result, err := seeder.Seed(ctx, other, rows[:1])
		require.NoError(t, err)
		assert.Equal(t, 1, result.RolesCreated)
		assert.Equal(t, 0, result.PermissionsCreated)
		assert.Equal(t, 1, result.LinksCreated)
	})

	t.Run("tenant is required", func(t *testing.T) {
		_, err := seeder.Seed(ctx, uuid.Nil, rows)
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.CodeInvalidInput, de.Code)
	})
}
