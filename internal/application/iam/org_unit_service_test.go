package iam

import (
	"context"
	"errors"
	"testing"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/persistence"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newOrgUnitService(db *gorm.DB) *OrgUnitService {
	return NewOrgUnitService(persistence.NewGormTransactionScope(db), NewAuthorizer(nil, zap.NewNop()), zap.NewNop())
}

func countAudit(t *testing.T, db *gorm.DB, entityType, action string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&iam.AuditLog{}).
		Where("entity_type = ? AND action = ?", entityType, action).
		Count(&n).Error)
	return n
}

func TestOrgUnitService_Create(t *testing.T) {
	db := testutil.NewTestDB(t)
	tenant := testutil.SeedTenant(t, db)
	svc := newOrgUnitService(db)
	ctx := context.Background()
	admin := core.NewActor(tenant.ID, tenant.AdminID).WithRequest("10.0.0.1", "go-test")
	rootID := tenant.Root.ID

	zone, err := svc.Create(ctx, admin, CreateOrgUnitInput{Name: "Ireland Zone", Type: "zone", ParentID: &rootID})
	require.NoError(t, err)
	assert.Equal(t, "zone", zone.Type)
	assert.Equal(t, int64(1), countAudit(t, db, entityOrgUnit, iam.AuditActionCreate))

	var entry iam.AuditLog
	require.NoError(t, db.Where("entity_id = ?", zone.ID).First(&entry).Error)
	assert.Equal(t, "10.0.0.1", entry.IP)
	assert.Equal(t, "go-test", entry.UserAgent)

	t.Run("parent must rank above the child", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, CreateOrgUnitInput{Name: "Another Zone", Type: "zone", ParentID: &zone.ID})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.CodeInvalidHierarchy, de.Code)

		_, err = svc.Create(ctx, admin, CreateOrgUnitInput{Name: "Up", Type: "region", ParentID: &zone.ID})
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.CodeInvalidHierarchy, de.Code)
	})

	t.Run("sibling names are unique", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, CreateOrgUnitInput{Name: "ireland zone", Type: "zone", ParentID: &rootID})
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
	})

	t.Run("unknown parent", func(t *testing.T) {
		missing := uuid.New()
		_, err := svc.Create(ctx, admin, CreateOrgUnitInput{Name: "Lost", Type: "church", ParentID: &missing})
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("permission is required", func(t *testing.T) {
		user := testutil.CreateUser(t, db, tenant.ID, "viewer@example.org")
		_, err := svc.Create(ctx, core.NewActor(tenant.ID, user.ID), CreateOrgUnitInput{Name: "X", Type: "group", ParentID: &zone.ID})
		assert.True(t, errors.Is(err, shared.ErrForbidden))
	})
}

func TestOrgUnitService_Move(t *testing.T) {
	db := testutil.NewTestDB(t)
	tr := seedTree(t, db)
	svc := newOrgUnitService(db)
	ctx := context.Background()
	admin := core.NewActor(tr.tenant.ID, tr.tenant.AdminID)

	t.Run("into own descendant is a cycle", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, tr.zone.ID, UpdateOrgUnitInput{ParentID: &tr.church.ID})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Contains(t, []string{shared.CodeCircularReference, shared.CodeInvalidHierarchy}, de.Code)
	})

	t.Run("onto itself", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, tr.group.ID, UpdateOrgUnitInput{ParentID: &tr.group.ID})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.CodeCircularReference, de.Code)
	})

	t.Run("church under a sibling group", func(t *testing.T) {
		moved, err := svc.Update(ctx, admin, tr.church.ID, UpdateOrgUnitInput{ParentID: &tr.other.ID})
		require.NoError(t, err)
		require.NotNil(t, moved.ParentID)
		assert.Equal(t, tr.other.ID, *moved.ParentID)
		assert.Equal(t, int64(1), countAudit(t, db, entityOrgUnit, iam.AuditActionUpdate))

		chain, err := svc.Ancestors(ctx, admin, tr.church.ID)
		require.NoError(t, err)
		require.Len(t, chain, 3)
		assert.Equal(t, tr.other.ID, chain[2].ID)
	})

	t.Run("group cannot sit under a church", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, tr.group.ID, UpdateOrgUnitInput{ParentID: &tr.church.ID})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.CodeInvalidHierarchy, de.Code)
	})
}

func TestOrgUnitService_Delete(t *testing.T) {
	db := testutil.NewTestDB(t)
	tr := seedTree(t, db)
	svc := newOrgUnitService(db)
	ctx := context.Background()
	admin := core.NewActor(tr.tenant.ID, tr.tenant.AdminID)

	t.Run("with children", func(t *testing.T) {
		err := svc.Delete(ctx, admin, tr.group.ID)
		assert.True(t, errors.Is(err, shared.ErrHasDependents))
	})

	t.Run("with assignments", func(t *testing.T) {
		user := testutil.CreateUser(t, db, tr.tenant.ID, "leader@example.org")
		testutil.Grant(t, db, tr.tenant.ID, user.ID, tr.other.ID, iam.ScopeSelf, iam.PermPeopleCreate)
		err := svc.Delete(ctx, admin, tr.other.ID)
		assert.True(t, errors.Is(err, shared.ErrHasDependents))
	})

	t.Run("with people", func(t *testing.T) {
		p, err := registry.NewPerson(tr.tenant.ID, uuid.Nil, tr.church.ID, registry.PersonDetails{
			FirstName: "Ada", LastName: "Okafor", Gender: registry.GenderFemale,
		})
		require.NoError(t, err)
		require.NoError(t, db.Create(p).Error)

		err = svc.Delete(ctx, admin, tr.church.ID)
		assert.True(t, errors.Is(err, shared.ErrHasDependents))

		require.NoError(t, db.Delete(p).Error)
	})

	t.Run("leaf without dependents", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, admin, tr.church.ID))
		_, err := svc.Get(ctx, admin, tr.church.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
		assert.Equal(t, int64(1), countAudit(t, db, entityOrgUnit, iam.AuditActionDelete))
	})
}

func TestOrgUnitService_Queries(t *testing.T) {
	db := testutil.NewTestDB(t)
	tr := seedTree(t, db)
	svc := newOrgUnitService(db)
	ctx := context.Background()
	admin := core.NewActor(tr.tenant.ID, tr.tenant.AdminID)

	subtree, err := svc.Subtree(ctx, admin, tr.zone.ID)
	require.NoError(t, err)
	assert.Len(t, subtree, 3)

	children, err := svc.Children(ctx, admin, tr.zone.ID)
	require.NoError(t, err)
	assert.Len(t, children, 2)

	page, err := svc.List(ctx, admin, OrgUnitListFilter{Type: "group"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, "Cork Group", page.Items[0].Name)

	_, err = svc.List(ctx, admin, OrgUnitListFilter{Type: "parish"})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}
