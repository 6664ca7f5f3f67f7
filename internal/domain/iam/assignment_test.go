package iam

import (
	"testing"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrgAssignmentCovers(t *testing.T) {
	tenantID := uuid.New()
	zone, group, church, other := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	newAssignment := func(scope ScopeType, custom ...uuid.UUID) *OrgAssignment {
		a, err := NewOrgAssignment(tenantID, uuid.New(), uuid.New(), zone, uuid.New(), scope, custom)
		require.NoError(t, err)
		return a
	}

	tests := []struct {
		name      string
		a         *OrgAssignment
		target    uuid.UUID
		ancestors []uuid.UUID
		want      bool
	}{
		{"self exact", newAssignment(ScopeSelf), zone, nil, true},
		{"self child", newAssignment(ScopeSelf), group, []uuid.UUID{zone}, false},
		{"subtree root", newAssignment(ScopeSubtree), zone, nil, true},
		{"subtree grandchild", newAssignment(ScopeSubtree), church, []uuid.UUID{zone, group}, true},
		{"subtree unrelated", newAssignment(ScopeSubtree), other, nil, false},
		{"custom listed", newAssignment(ScopeCustomSet, church), church, nil, true},
		{"custom not listed", newAssignment(ScopeCustomSet, church), group, []uuid.UUID{zone}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Covers(tt.target, tt.ancestors))
		})
	}
}

func TestOrgAssignmentCustomUnits(t *testing.T) {
	tenantID := uuid.New()
	unit := uuid.New()

	t.Run("custom units dropped for other scopes", func(t *testing.T) {
		a, err := NewOrgAssignment(tenantID, uuid.Nil, uuid.New(), uuid.New(), uuid.New(), ScopeSubtree, []uuid.UUID{unit})
		require.NoError(t, err)
		assert.Empty(t, a.CustomOrgUnitIDs)
	})

	t.Run("duplicates removed", func(t *testing.T) {
		a, err := NewOrgAssignment(tenantID, uuid.Nil, uuid.New(), uuid.New(), uuid.New(), ScopeCustomSet, []uuid.UUID{unit, unit})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{unit}, a.CustomOrgUnitIDs)
	})

	t.Run("leaving custom_set clears units", func(t *testing.T) {
		a, _ := NewOrgAssignment(tenantID, uuid.Nil, uuid.New(), uuid.New(), uuid.New(), ScopeCustomSet, []uuid.UUID{unit})
		require.NoError(t, a.ChangeScope(ScopeSelf))
		assert.Empty(t, a.CustomOrgUnitIDs)
	})

	t.Run("add and remove only on custom_set", func(t *testing.T) {
		a, _ := NewOrgAssignment(tenantID, uuid.Nil, uuid.New(), uuid.New(), uuid.New(), ScopeSelf, nil)
		assertCode(t, a.AddCustomUnit(unit), shared.CodeInvalidState)
		assertCode(t, a.RemoveCustomUnit(unit), shared.CodeInvalidState)

		require.NoError(t, a.ChangeScope(ScopeCustomSet))
		require.NoError(t, a.AddCustomUnit(unit))
		assertCode(t, a.AddCustomUnit(unit), shared.CodeAlreadyExists)
		require.NoError(t, a.RemoveCustomUnit(unit))
		assertCode(t, a.RemoveCustomUnit(unit), shared.CodeNotFound)
	})

	t.Run("defaults to self and rejects unknown scope", func(t *testing.T) {
		a, err := NewOrgAssignment(tenantID, uuid.Nil, uuid.New(), uuid.New(), uuid.New(), "", nil)
		require.NoError(t, err)
		assert.Equal(t, ScopeSelf, a.ScopeType)

		_, err = NewOrgAssignment(tenantID, uuid.Nil, uuid.New(), uuid.New(), uuid.New(), "global", nil)
		assertCode(t, err, shared.CodeInvalidInput)
	})
}
