package testutil

import (
	"testing"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	mockDB := NewMockDB(t)
	defer mockDB.Close()

	assert.NotNil(t, mockDB.DB)
	assert.NotNil(t, mockDB.Mock)
	mockDB.ExpectationsWereMet(t)
}

func TestNewTestDB(t *testing.T) {
	db := NewTestDB(t)

	for _, table := range []string{"org_units", "finance_entries", "outbox_notifications", "report_schedules"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
}

func TestNewTestDB_Isolated(t *testing.T) {
	a := NewTestDB(t)
	b := NewTestDB(t)

	CreateOrgUnit(t, a, NewTestUUID("tenant"), "Only in A", iam.OrgUnitTypeRegion, nil)

	var count int64
	require.NoError(t, b.Model(&iam.OrgUnit{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSeedTenant(t *testing.T) {
	db := NewTestDB(t)
	tenant := SeedTenant(t, db)

	var codes []string
	err := db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", tenant.RoleID).
		Pluck("permissions.code", &codes).Error
	require.NoError(t, err)
	assert.Len(t, codes, len(iam.KnownPermissions))

	var assignment iam.OrgAssignment
	require.NoError(t, db.Where("user_id = ?", tenant.AdminID).First(&assignment).Error)
	assert.Equal(t, iam.ScopeSubtree, assignment.ScopeType)
	assert.Equal(t, tenant.Root.ID, assignment.OrgUnitID)
}

func TestGrant_ReusesPermissions(t *testing.T) {
	db := NewTestDB(t)
	tenant := SeedTenant(t, db)
	other := CreateUser(t, db, tenant.ID, "other@example.org")

	Grant(t, db, tenant.ID, other.ID, tenant.Root.ID, iam.ScopeSelf, iam.PermFinanceVerify)

	var count int64
	require.NoError(t, db.Model(&iam.Permission{}).Where("code = ?", iam.PermFinanceVerify).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestNewTestUUID_Deterministic(t *testing.T) {
	assert.Equal(t, NewTestUUID("x"), NewTestUUID("x"))
	assert.NotEqual(t, NewTestUUID("x"), NewTestUUID("y"))
}
