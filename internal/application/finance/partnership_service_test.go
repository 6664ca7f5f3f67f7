package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartnershipService_Fulfilment(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	today := time.Date(2024, 6, 30, 15, 0, 0, 0, time.UTC)
	h.pledges.now = func() time.Time { return today }

	person := h.person(t, "Aoife")
	target := decimal.NewFromInt(200)
	p, err := h.pledges.Create(ctx, h.admin, CreatePartnershipInput{
		PersonID: person.ID, FundID: h.fund.ID, Cadence: "monthly",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), TargetAmount: &target,
	})
	require.NoError(t, err)

	give := func(amount string, date time.Time) {
		_, err := h.entries.Create(ctx, h.admin, CreateEntryInput{
			OrgUnitID: h.church.ID, FundID: h.fund.ID, PersonID: &person.ID,
			Amount: decimal.RequireFromString(amount), TransactionDate: date,
		})
		require.NoError(t, err)
	}
	give("30", time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
	give("20", time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))
	give("500", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) // outside the window

	f, err := h.pledges.Fulfilment(ctx, h.admin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), f.From)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), f.To)
	assert.True(t, decimal.NewFromInt(50).Equal(f.TotalGiven), "got %s", f.TotalGiven)
	assert.Equal(t, int64(2), f.EntryCount)
	require.NotNil(t, f.Percentage)
	assert.InDelta(t, 25.0, *f.Percentage, 0.001)

	t.Run("no target means no percentage", func(t *testing.T) {
		zero := decimal.Zero
		_, err := h.pledges.Update(ctx, h.admin, p.ID, UpdatePartnershipInput{TargetAmount: &zero})
		require.NoError(t, err)
		f, err := h.pledges.Fulfilment(ctx, h.admin, p.ID)
		require.NoError(t, err)
		assert.Nil(t, f.Percentage)
	})

	t.Run("window ends on the end date", func(t *testing.T) {
		end := time.Date(2024, 4, 7, 0, 0, 0, 0, time.UTC)
		cadence := string(finance.CadenceWeekly)
		_, err := h.pledges.Update(ctx, h.admin, p.ID, UpdatePartnershipInput{EndDate: &end, Cadence: &cadence})
		require.NoError(t, err)
		f, err := h.pledges.Fulfilment(ctx, h.admin, p.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(500).Equal(f.TotalGiven))
	})
}

func TestPartnershipService_CRUD(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	person := h.person(t, "Cillian")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := h.pledges.Create(ctx, h.admin, CreatePartnershipInput{
		PersonID: person.ID, FundID: h.fund.ID, Cadence: "fortnightly", StartDate: start,
	})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	p, err := h.pledges.Create(ctx, h.admin, CreatePartnershipInput{
		PersonID: person.ID, FundID: h.fund.ID, Cadence: "annual", StartDate: start,
	})
	require.NoError(t, err)
	assert.Equal(t, string(finance.PartnershipActive), p.Status)

	t.Run("status change", func(t *testing.T) {
		status := "paused"
		u, err := h.pledges.Update(ctx, h.admin, p.ID, UpdatePartnershipInput{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, "paused", u.Status)

		bad := "cancelled"
		_, err = h.pledges.Update(ctx, h.admin, p.ID, UpdatePartnershipInput{Status: &bad})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("partner outside the actor's units", func(t *testing.T) {
		u := testutil.CreateUser(t, h.db, h.tenant.ID, "cork@example.org")
		cork := testutil.CreateOrgUnit(t, h.db, h.tenant.ID, "Cork", iam.OrgUnitTypeChurch, h.tenant.Root)
		testutil.Grant(t, h.db, h.tenant.ID, u.ID, cork.ID, iam.ScopeSubtree, iam.PermEntriesCreate, iam.PermEntriesDelete)
		actor := core.NewActor(h.tenant.ID, u.ID)

		_, err := h.pledges.Get(ctx, actor, p.ID)
		assert.True(t, errors.Is(err, shared.ErrForbidden))
		assert.True(t, errors.Is(h.pledges.Delete(ctx, actor, p.ID), shared.ErrForbidden))

		page, err := h.pledges.List(ctx, actor, PartnershipListFilter{})
		require.NoError(t, err)
		assert.Zero(t, page.Total)
	})

	t.Run("list and delete", func(t *testing.T) {
		page, err := h.pledges.List(ctx, h.admin, PartnershipListFilter{PersonID: &person.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)

		require.NoError(t, h.pledges.Delete(ctx, h.admin, p.ID))
		_, err = h.pledges.Get(ctx, h.admin, p.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}
