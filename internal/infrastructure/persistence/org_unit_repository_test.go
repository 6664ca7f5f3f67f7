package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/tests/testutil"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree creates region > zone > {group A > church, group B}
func buildTree(t *testing.T, tenantID uuid.UUID, repo *GormOrgUnitRepository) map[string]*iam.OrgUnit {
	t.Helper()
	ctx := context.Background()

	units := map[string]*iam.OrgUnit{}
	add := func(key, name string, typ iam.OrgUnitType, parent string) {
		u, err := iam.NewOrgUnit(tenantID, uuid.Nil, name, typ, units[parent])
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, u))
		units[key] = u
	}
	add("region", "Ireland", iam.OrgUnitTypeRegion, "")
	add("zone", "Ireland Zone", iam.OrgUnitTypeZone, "region")
	add("groupA", "Dublin Group", iam.OrgUnitTypeGroup, "zone")
	add("groupB", "Cork Group", iam.OrgUnitTypeGroup, "zone")
	add("church", "Dublin Central", iam.OrgUnitTypeChurch, "groupA")
	return units
}

func TestGormOrgUnitRepository_Hierarchy(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGormOrgUnitRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	units := buildTree(t, tenantID, repo)

	t.Run("descendants exclude the root", func(t *testing.T) {
		ids, err := repo.FindDescendantIDs(ctx, tenantID, units["zone"].ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{units["groupA"].ID, units["groupB"].ID, units["church"].ID}, ids)
	})

	t.Run("leaf has no descendants", func(t *testing.T) {
		ids, err := repo.FindDescendantIDs(ctx, tenantID, units["church"].ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("descendants are tenant scoped", func(t *testing.T) {
		ids, err := repo.FindDescendantIDs(ctx, uuid.New(), units["zone"].ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("ancestors are ordered root first", func(t *testing.T) {
		chain, err := repo.FindAncestors(ctx, tenantID, units["church"].ID)
		require.NoError(t, err)
		require.Len(t, chain, 3)
		assert.Equal(t, units["region"].ID, chain[0].ID)
		assert.Equal(t, units["zone"].ID, chain[1].ID)
		assert.Equal(t, units["groupA"].ID, chain[2].ID)
	})

	t.Run("root has no ancestors", func(t *testing.T) {
		chain, err := repo.FindAncestors(ctx, tenantID, units["region"].ID)
		require.NoError(t, err)
		assert.Empty(t, chain)
	})

	t.Run("children and has children", func(t *testing.T) {
		children, err := repo.FindChildren(ctx, tenantID, units["zone"].ID)
		require.NoError(t, err)
		require.Len(t, children, 2)
		assert.Equal(t, "Cork Group", children[0].Name)

		has, err := repo.HasChildren(ctx, tenantID, units["groupB"].ID)
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("sibling names are case insensitive and parent scoped", func(t *testing.T) {
		zoneID := units["zone"].ID
		exists, err := repo.ExistsSibling(ctx, tenantID, &zoneID, "dublin group", uuid.Nil)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsSibling(ctx, tenantID, &zoneID, "dublin group", units["groupA"].ID)
		require.NoError(t, err)
		assert.False(t, exists)

		exists, err = repo.ExistsSibling(ctx, tenantID, nil, "IRELAND", uuid.Nil)
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestGormOrgUnitRepository_FindAll(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGormOrgUnitRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	units := buildTree(t, tenantID, repo)

	filter := shared.Filter{Page: 1, PageSize: 10, OrderBy: "name", OrderDir: "asc"}.
		With("type", iam.OrgUnitTypeGroup)
	list, err := repo.FindAll(ctx, tenantID, filter)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Cork Group", list[0].Name)

	count, err := repo.Count(ctx, tenantID, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	filter = shared.Filter{Page: 1, PageSize: 10, Search: "dub"}.With("parent_id", units["zone"].ID)
	list, err = repo.FindAll(ctx, tenantID, filter)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, units["groupA"].ID, list[0].ID)
}

func TestGormOrgUnitRepository_Delete(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGormOrgUnitRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	units := buildTree(t, tenantID, repo)

	require.NoError(t, repo.Delete(ctx, tenantID, units["groupB"].ID))

	_, err := repo.FindByID(ctx, tenantID, units["groupB"].ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	err = repo.Delete(ctx, tenantID, units["groupB"].ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestGormOrgUnitRepository_DescendantsOnPostgres(t *testing.T) {
	tenantID := uuid.New()
	rootID := uuid.New()
	childID := uuid.New()
	grandchildID := uuid.New()

	t.Run("uses a recursive CTE", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		repo := NewGormOrgUnitRepository(mockDB.DB)

		mockDB.Mock.ExpectQuery(`WITH RECURSIVE tree AS`).
			WithArgs(tenantID, rootID, tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(childID.String()).AddRow(grandchildID.String()))

		ids, err := repo.FindDescendantIDs(context.Background(), tenantID, rootID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{childID, grandchildID}, ids)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("falls back to a level walk when the CTE fails", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		repo := NewGormOrgUnitRepository(mockDB.DB)

		mockDB.Mock.ExpectQuery(`WITH RECURSIVE tree AS`).
			WillReturnError(errors.New("recursion not supported"))
		mockDB.Mock.ExpectQuery(`SELECT "id" FROM "org_units" WHERE tenant_id = \$1 AND parent_id IN \(\$2\)`).
			WithArgs(tenantID, rootID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(childID.String()))
		mockDB.Mock.ExpectQuery(`SELECT "id" FROM "org_units" WHERE tenant_id = \$1 AND parent_id IN \(\$2\)`).
			WithArgs(tenantID, childID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(grandchildID.String()))
		mockDB.Mock.ExpectQuery(`SELECT "id" FROM "org_units" WHERE tenant_id = \$1 AND parent_id IN \(\$2\)`).
			WithArgs(tenantID, grandchildID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		ids, err := repo.FindDescendantIDs(context.Background(), tenantID, rootID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{childID, grandchildID}, ids)
		mockDB.ExpectationsWereMet(t)
	})
}
