package handler

import (
	"net/http"
	"testing"

	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/dto"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIAMHandler_OrgUnits(t *testing.T) {
	s := newServer(t)

	w := testutil.PerformRequest(t, s.engine, http.MethodPost, "/api/v1/iam/org-units", map[string]any{
		"name": "Dublin Zone", "type": "zone", "parent_id": s.tenant.Root.ID,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	zone := testutil.DecodeData[appiam.OrgUnitDTO](t, w)
	assert.Equal(t, "zone", zone.Type)
	require.NotNil(t, zone.ParentID)
	assert.Equal(t, s.tenant.Root.ID, *zone.ParentID)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	t.Run("unknown type fails validation", func(t *testing.T) {
		w := testutil.PerformRequest(t, s.engine, http.MethodPost, "/api/v1/iam/org-units", map[string]any{
			"name": "Somewhere", "type": "diocese", "parent_id": s.tenant.Root.ID,
		}, nil)
		testutil.AssertErrorCode(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})

	t.Run("list is paginated", func(t *testing.T) {
		w := testutil.PerformRequest(t, s.engine, http.MethodGet, "/api/v1/iam/org-units?page_size=1", nil, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := testutil.DecodeJSON(t, w)
		meta := body["meta"].(map[string]any)
		assert.EqualValues(t, 2, meta["total"])
		assert.EqualValues(t, 1, meta["page_size"])
		assert.EqualValues(t, 2, meta["total_pages"])
		assert.Len(t, body["data"], 1)
	})

	t.Run("page size above the cap", func(t *testing.T) {
		w := testutil.PerformRequest(t, s.engine, http.MethodGet, "/api/v1/iam/org-units?page_size=500", nil, nil)
		testutil.AssertErrorCode(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})

	t.Run("children", func(t *testing.T) {
		w := testutil.PerformRequest(t, s.engine, http.MethodGet,
			"/api/v1/iam/org-units/"+s.tenant.Root.ID.String()+"/children", nil, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		children := testutil.DecodeData[[]appiam.OrgUnitDTO](t, w)
		require.Len(t, children, 1)
		assert.Equal(t, zone.ID, children[0].ID)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := testutil.PerformRequest(t, s.engine, http.MethodGet, "/api/v1/iam/org-units/not-a-uuid", nil, nil)
		testutil.AssertErrorCode(t, w, http.StatusBadRequest, dto.ErrCodeBadRequest)
	})

	t.Run("unknown id", func(t *testing.T) {
		w := testutil.PerformRequest(t, s.engine, http.MethodGet, "/api/v1/iam/org-units/"+uuid.NewString(), nil, nil)
		testutil.AssertErrorCode(t, w, http.StatusNotFound, shared.CodeNotFound)
	})

	t.Run("a unit with children cannot be deleted", func(t *testing.T) {
		w := testutil.PerformRequest(t, s.engine, http.MethodDelete,
			"/api/v1/iam/org-units/"+s.tenant.Root.ID.String(), nil, nil)
		testutil.AssertErrorCode(t, w, http.StatusBadRequest, shared.CodeHasDependents)
	})

	t.Run("a leaf is deleted", func(t *testing.T) {
		w := testutil.PerformRequest(t, s.engine, http.MethodDelete,
			"/api/v1/iam/org-units/"+zone.ID.String(), nil, nil)
		assert.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	})
}
