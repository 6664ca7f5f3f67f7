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
	"gorm.io/gorm"
)

// MockPermissionCache is a mock implementation of PermissionCache
type MockPermissionCache struct {
	mock.Mock
}

func (m *MockPermissionCache) Get(ctx context.Context, tenantID, userID uuid.UUID) ([]string, bool, error) {
	args := m.Called(ctx, tenantID, userID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]string), args.Bool(1), args.Error(2)
}

func (m *MockPermissionCache) Set(ctx context.Context, tenantID, userID uuid.UUID, codes []string) error {
	args := m.Called(ctx, tenantID, userID, codes)
	return args.Error(0)
}

func (m *MockPermissionCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

// tree is region > zone > group > church, plus a second group under the zone
type tree struct {
	tenant *testutil.Tenant
	zone   *iam.OrgUnit
	group  *iam.OrgUnit
	church *iam.OrgUnit
	other  *iam.OrgUnit
}

func seedTree(t *testing.T, db *gorm.DB) tree {
	t.Helper()
	tenant := testutil.SeedTenant(t, db)
	zone := testutil.CreateOrgUnit(t, db, tenant.ID, "Ireland Zone", iam.OrgUnitTypeZone, tenant.Root)
	group := testutil.CreateOrgUnit(t, db, tenant.ID, "Dublin Group", iam.OrgUnitTypeGroup, zone)
	church := testutil.CreateOrgUnit(t, db, tenant.ID, "Dublin Central", iam.OrgUnitTypeChurch, group)
	other := testutil.CreateOrgUnit(t, db, tenant.ID, "Cork Group", iam.OrgUnitTypeGroup, zone)
	return tree{tenant: tenant, zone: zone, group: group, church: church, other: other}
}

func withRepos(t *testing.T, db *gorm.DB, fn func(repos core.TransactionalRepositories)) {
	t.Helper()
	scope := persistence.NewGormTransactionScope(db)
	require.NoError(t, scope.Execute(context.Background(), func(repos core.TransactionalRepositories) error {
		fn(repos)
		return nil
	}))
}

func TestAuthorizer_OrgAccess(t *testing.T) {
	db := testutil.NewTestDB(t)
	tr := seedTree(t, db)
	authz := NewAuthorizer(nil, zap.NewNop())
	ctx := context.Background()

	selfUser := testutil.CreateUser(t, db, tr.tenant.ID, "self@example.org")
	testutil.Grant(t, db, tr.tenant.ID, selfUser.ID, tr.group.ID, iam.ScopeSelf, iam.PermFinanceVerify)

	subtreeUser := testutil.CreateUser(t, db, tr.tenant.ID, "subtree@example.org")
	testutil.Grant(t, db, tr.tenant.ID, subtreeUser.ID, tr.group.ID, iam.ScopeSubtree, iam.PermFinanceVerify)

	customUser := testutil.CreateUser(t, db, tr.tenant.ID, "custom@example.org")
	custom, err := iam.NewOrgAssignment(tr.tenant.ID, uuid.Nil, customUser.ID, tr.zone.ID, tr.tenant.RoleID,
		iam.ScopeCustomSet, []uuid.UUID{tr.other.ID})
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormAssignmentRepository(db).Save(ctx, custom))

	nobody := testutil.CreateUser(t, db, tr.tenant.ID, "nobody@example.org")

	tests := []struct {
		name   string
		user   uuid.UUID
		target uuid.UUID
		want   bool
	}{
		{"self exact match", selfUser.ID, tr.group.ID, true},
		{"self does not reach children", selfUser.ID, tr.church.ID, false},
		{"subtree covers the anchor", subtreeUser.ID, tr.group.ID, true},
		{"subtree covers descendants", subtreeUser.ID, tr.church.ID, true},
		{"subtree does not reach siblings", subtreeUser.ID, tr.other.ID, false},
		{"subtree does not reach ancestors", subtreeUser.ID, tr.zone.ID, false},
		{"custom set lists the unit", customUser.ID, tr.other.ID, true},
		{"custom set ignores the anchor", customUser.ID, tr.zone.ID, false},
		{"no assignments", nobody.ID, tr.group.ID, false},
		{"root admin reaches everything", tr.tenant.AdminID, tr.church.ID, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withRepos(t, db, func(repos core.TransactionalRepositories) {
				ok, err := authz.HasOrgAccess(ctx, repos, core.NewActor(tr.tenant.ID, tt.user), tt.target)
				require.NoError(t, err)
				assert.Equal(t, tt.want, ok)
			})
		})
	}

	t.Run("validate combines permission and scope", func(t *testing.T) {
		withRepos(t, db, func(repos core.TransactionalRepositories) {
			actor := core.NewActor(tr.tenant.ID, subtreeUser.ID)
			assert.NoError(t, authz.ValidateOrgAccess(ctx, repos, actor, tr.church.ID, iam.PermFinanceVerify))

			err := authz.ValidateOrgAccess(ctx, repos, actor, tr.church.ID, iam.PermBatchesLock)
			assert.True(t, errors.Is(err, shared.ErrForbidden))

			err = authz.ValidateOrgAccess(ctx, repos, actor, tr.other.ID, iam.PermFinanceVerify)
			assert.True(t, errors.Is(err, shared.ErrForbidden))
		})
	})
}

func TestAuthorizer_AccessibleOrgUnits(t *testing.T) {
	db := testutil.NewTestDB(t)
	tr := seedTree(t, db)
	authz := NewAuthorizer(nil, zap.NewNop())

	user := testutil.CreateUser(t, db, tr.tenant.ID, "mixed@example.org")
	testutil.Grant(t, db, tr.tenant.ID, user.ID, tr.group.ID, iam.ScopeSubtree, iam.PermReportsQuery)
	testutil.Grant(t, db, tr.tenant.ID, user.ID, tr.other.ID, iam.ScopeSelf, iam.PermReportsQuery)

	withRepos(t, db, func(repos core.TransactionalRepositories) {
		ids, err := authz.AccessibleOrgUnits(context.Background(), repos, tr.tenant.ID, user.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{tr.group.ID, tr.church.ID, tr.other.ID}, ids)
	})
}

func TestAuthorizer_PermissionCache(t *testing.T) {
	db := testutil.NewTestDB(t)
	tenant := testutil.SeedTenant(t, db)
	ctx := context.Background()

	t.Run("cache hit skips the database", func(t *testing.T) {
		cache := new(MockPermissionCache)
		cache.On("Get", mock.Anything, tenant.ID, tenant.AdminID).Return([]string{iam.PermAuditView}, true, nil)
		authz := NewAuthorizer(cache, zap.NewNop())

		withRepos(t, db, func(repos core.TransactionalRepositories) {
			codes, err := authz.UserPermissions(ctx, repos, tenant.ID, tenant.AdminID)
			require.NoError(t, err)
			assert.Equal(t, []string{iam.PermAuditView}, codes)
		})
		cache.AssertExpectations(t)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cache miss loads and stores sorted codes", func(t *testing.T) {
		cache := new(MockPermissionCache)
		cache.On("Get", mock.Anything, tenant.ID, tenant.AdminID).Return(nil, false, nil)
		cache.On("Set", mock.Anything, tenant.ID, tenant.AdminID, mock.MatchedBy(func(codes []string) bool {
			return len(codes) == len(iam.KnownPermissions)
		})).Return(nil)
		authz := NewAuthorizer(cache, zap.NewNop())

		withRepos(t, db, func(repos core.TransactionalRepositories) {
			codes, err := authz.UserPermissions(ctx, repos, tenant.ID, tenant.AdminID)
			require.NoError(t, err)
			assert.IsIncreasing(t, codes)
		})
		cache.AssertExpectations(t)
	})

	t.Run("cache errors fall back to the database", func(t *testing.T) {
		cache := new(MockPermissionCache)
		cache.On("Get", mock.Anything, tenant.ID, tenant.AdminID).Return(nil, false, errors.New("connection refused"))
		cache.On("Set", mock.Anything, tenant.ID, tenant.AdminID, mock.Anything).Return(errors.New("connection refused"))
		authz := NewAuthorizer(cache, zap.NewNop())

		withRepos(t, db, func(repos core.TransactionalRepositories) {
			ok, err := authz.HasPermission(ctx, repos, core.NewActor(tenant.ID, tenant.AdminID), iam.PermBatchesLock)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	})

	t.Run("invalidate drops the tenant", func(t *testing.T) {
		cache := new(MockPermissionCache)
		cache.On("InvalidateTenant", mock.Anything, tenant.ID).Return(nil)
		NewAuthorizer(cache, zap.NewNop()).Invalidate(ctx, tenant.ID)
		cache.AssertExpectations(t)
	})
}
