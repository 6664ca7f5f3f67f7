package iam

import (
	"errors"
	"testing"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *shared.DomainError
	require.True(t, errors.As(err, &de), "expected domain error, got %v", err)
	assert.Equal(t, code, de.Code)
}

func TestOrgUnitType(t *testing.T) {
	t.Run("levels follow the hierarchy", func(t *testing.T) {
		for i, typ := range OrgUnitTypes() {
			assert.Equal(t, i, typ.Level(), typ)
		}
	})

	t.Run("unknown type has no level", func(t *testing.T) {
		assert.Equal(t, -1, OrgUnitType("diocese").Level())
		assert.False(t, OrgUnitType("diocese").IsValid())
	})

	t.Run("parses case-insensitively", func(t *testing.T) {
		typ, err := ParseOrgUnitType(" Church ")
		require.NoError(t, err)
		assert.Equal(t, OrgUnitTypeChurch, typ)

		_, err = ParseOrgUnitType("parish")
		assertCode(t, err, shared.CodeInvalidInput)
	})
}

func TestNewOrgUnit(t *testing.T) {
	tenantID := uuid.New()
	actor := uuid.New()

	t.Run("creates root unit", func(t *testing.T) {
		unit, err := NewOrgUnit(tenantID, actor, "  Ireland  ", OrgUnitTypeRegion, nil)
		require.NoError(t, err)
		assert.Equal(t, "Ireland", unit.Name)
		assert.True(t, unit.IsRoot())
		assert.Equal(t, 1, unit.Version)
		require.NotNil(t, unit.CreatedBy)
		assert.Equal(t, actor, *unit.CreatedBy)
	})

	t.Run("creates child below a higher level", func(t *testing.T) {
		zone, err := NewOrgUnit(tenantID, actor, "Zone", OrgUnitTypeZone, nil)
		require.NoError(t, err)
		church, err := NewOrgUnit(tenantID, actor, "Dublin", OrgUnitTypeChurch, zone)
		require.NoError(t, err)
		require.NotNil(t, church.ParentID)
		assert.Equal(t, zone.ID, *church.ParentID)
	})

	t.Run("rejects child at the same or higher level", func(t *testing.T) {
		church, err := NewOrgUnit(tenantID, actor, "Dublin", OrgUnitTypeChurch, nil)
		require.NoError(t, err)

		_, err = NewOrgUnit(tenantID, actor, "Other", OrgUnitTypeChurch, church)
		assertCode(t, err, shared.CodeInvalidHierarchy)

		_, err = NewOrgUnit(tenantID, actor, "Region", OrgUnitTypeRegion, church)
		assertCode(t, err, shared.CodeInvalidHierarchy)
	})

	t.Run("rejects parent from another tenant", func(t *testing.T) {
		foreign, err := NewOrgUnit(uuid.New(), actor, "Foreign", OrgUnitTypeZone, nil)
		require.NoError(t, err)
		_, err = NewOrgUnit(tenantID, actor, "Mine", OrgUnitTypeChurch, foreign)
		assertCode(t, err, shared.CodeNotFound)
	})

	t.Run("rejects empty name and bad type", func(t *testing.T) {
		_, err := NewOrgUnit(tenantID, actor, "   ", OrgUnitTypeZone, nil)
		assertCode(t, err, shared.CodeInvalidInput)

		_, err = NewOrgUnit(tenantID, actor, "X", OrgUnitType("x"), nil)
		assertCode(t, err, shared.CodeInvalidInput)
	})
}

func TestOrgUnitMoveTo(t *testing.T) {
	tenantID := uuid.New()
	actor := uuid.New()
	zone, _ := NewOrgUnit(tenantID, actor, "Zone", OrgUnitTypeZone, nil)
	group, _ := NewOrgUnit(tenantID, actor, "Group", OrgUnitTypeGroup, zone)
	church, _ := NewOrgUnit(tenantID, actor, "Church", OrgUnitTypeChurch, group)
	otherZone, _ := NewOrgUnit(tenantID, actor, "Zone 2", OrgUnitTypeZone, nil)

	t.Run("moves to a valid parent", func(t *testing.T) {
		g := *group
		require.NoError(t, g.MoveTo(otherZone, []uuid.UUID{church.ID}))
		assert.Equal(t, otherZone.ID, *g.ParentID)
		assert.Equal(t, 2, g.Version)
	})

	t.Run("rejects self as parent", func(t *testing.T) {
		g := *group
		assertCode(t, g.MoveTo(&g, nil), shared.CodeCircularReference)
	})

	t.Run("rejects descendant as parent", func(t *testing.T) {
		// An outreach cannot parent a group anyway, so use a zone-typed descendant
		deep, _ := NewOrgUnit(tenantID, actor, "Deep", OrgUnitTypeZone, nil)
		z := *zone
		err := z.MoveTo(deep, []uuid.UUID{group.ID, church.ID, deep.ID})
		assertCode(t, err, shared.CodeCircularReference)
	})

	t.Run("rejects wrong direction", func(t *testing.T) {
		g := *group
		assertCode(t, g.MoveTo(church, nil), shared.CodeInvalidHierarchy)
	})

	t.Run("nil parent makes root", func(t *testing.T) {
		c := *church
		require.NoError(t, c.MoveTo(nil, nil))
		assert.True(t, c.IsRoot())
	})
}
