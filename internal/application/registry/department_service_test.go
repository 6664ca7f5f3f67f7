package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepartmentService(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	choir, err := h.departments.Create(ctx, h.admin, h.church.ID, "Choir")
	require.NoError(t, err)
	assert.Equal(t, "active", choir.Status)

	_, err = h.departments.Create(ctx, h.admin, h.church.ID, "choir")
	assert.True(t, errors.Is(err, shared.ErrAlreadyExists))

	singer := h.person(t, "Grainne", "Fitzgerald")

	t.Run("assign and reassign a role", func(t *testing.T) {
		m, err := h.departments.AssignMember(ctx, h.admin, choir.ID, AssignMemberInput{PersonID: singer.ID})
		require.NoError(t, err)
		assert.Equal(t, "member", m.Role)

		again, err := h.departments.AssignMember(ctx, h.admin, choir.ID, AssignMemberInput{PersonID: singer.ID, Role: "Leader"})
		require.NoError(t, err)
		assert.Equal(t, m.ID, again.ID)
		assert.Equal(t, "leader", again.Role)

		_, err = h.departments.AssignMember(ctx, h.admin, choir.ID, AssignMemberInput{PersonID: singer.ID, Role: "captain"})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))

		members, err := h.departments.Members(ctx, h.admin, choir.ID)
		require.NoError(t, err)
		assert.Len(t, members, 1)
	})

	t.Run("delete is rejected while members remain", func(t *testing.T) {
		err := h.departments.Delete(ctx, h.admin, choir.ID)
		assert.True(t, errors.Is(err, shared.ErrHasDependents))

		require.NoError(t, h.departments.RemoveMember(ctx, h.admin, choir.ID, singer.ID))
		err = h.departments.RemoveMember(ctx, h.admin, choir.ID, singer.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))

		require.NoError(t, h.departments.Delete(ctx, h.admin, choir.ID))
		_, err = h.departments.Get(ctx, h.admin, choir.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("update and list", func(t *testing.T) {
		media, err := h.departments.Create(ctx, h.admin, h.church.ID, "Media")
		require.NoError(t, err)
		inactive := "inactive"
		u, err := h.departments.Update(ctx, h.admin, media.ID, nil, &inactive)
		require.NoError(t, err)
		assert.Equal(t, "inactive", u.Status)

		page, err := h.departments.List(ctx, h.admin, DepartmentListFilter{Status: "inactive"})
		require.NoError(t, err)
		require.Equal(t, int64(1), page.Total)
		assert.Equal(t, "Media", page.Items[0].Name)
	})

	t.Run("mutations need permissions", func(t *testing.T) {
		viewer := h.actorAt(t, "viewer@example.org", h.church, iam.PermDepartmentsCreate)
		_, err := h.departments.Create(ctx, viewer, h.church.ID, "Ushering")
		require.NoError(t, err)

		page, err := h.departments.List(ctx, viewer, DepartmentListFilter{})
		require.NoError(t, err)
		require.NotEmpty(t, page.Items)
		err = h.departments.Delete(ctx, viewer, page.Items[0].ID)
		assert.True(t, errors.Is(err, shared.ErrForbidden))
	})
}
