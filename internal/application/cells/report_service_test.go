package cells

import (
	"context"
	"errors"
	"testing"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) offeringFund(t *testing.T) *finance.Fund {
	t.Helper()
	fund, err := finance.NewFund(h.tenant.ID, uuid.Nil, "Offering", false)
	require.NoError(t, err)
	require.NoError(t, h.db.Create(fund).Error)
	return fund
}

func (h *harness) entryFor(t *testing.T, reportID uuid.UUID) *finance.FinanceEntry {
	t.Helper()
	var entries []finance.FinanceEntry
	require.NoError(t, h.db.Where("source_type = ? AND source_id = ?", finance.SourceCellReport, reportID).Find(&entries).Error)
	require.LessOrEqual(t, len(entries), 1)
	if len(entries) == 0 {
		return nil
	}
	return &entries[0]
}

func TestReportService_Reports(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.cell(t, "Rathmines")

	r := h.report(t, c.ID, day(2024, 5, 1), "0")
	assert.Equal(t, "submitted", r.Status)
	assert.Nil(t, r.FinanceEntryID)

	t.Run("one report per cell per date", func(t *testing.T) {
		_, err := h.reports.Create(ctx, h.admin, c.ID, ReportInput{ReportDate: day(2024, 5, 1), MeetingType: "outreach"})
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))

		other := h.report(t, c.ID, day(2024, 5, 8), "0")
		_, err = h.reports.Update(ctx, h.admin, other.ID, ReportInput{ReportDate: day(2024, 5, 1), MeetingType: "outreach"})
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
	})

	t.Run("validation", func(t *testing.T) {
		_, err := h.reports.Create(ctx, h.admin, c.ID, ReportInput{ReportDate: day(2024, 6, 1), MeetingType: "party"})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		_, err = h.reports.Create(ctx, h.admin, c.ID, ReportInput{ReportDate: day(2024, 6, 1), MeetingType: "outreach", Attendance: -1})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("approve", func(t *testing.T) {
		_, err := h.reports.Approve(ctx, h.admin, r.ID, "submitted")
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))

		leader := h.actorAt(t, "leader@example.org", h.church, iam.PermCellReportsCreate, iam.PermCellReportsUpdate)
		_, err = h.reports.Approve(ctx, leader, r.ID, "approved")
		assert.True(t, errors.Is(err, shared.ErrForbidden))

		a, err := h.reports.Approve(ctx, h.admin, r.ID, "Approved")
		require.NoError(t, err)
		assert.Equal(t, "approved", a.Status)
	})

	t.Run("list", func(t *testing.T) {
		page, err := h.reports.List(ctx, h.admin, ReportListFilter{CellID: &c.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)

		page, err = h.reports.List(ctx, h.admin, ReportListFilter{Status: "approved"})
		require.NoError(t, err)
		require.Equal(t, int64(1), page.Total)
		assert.Equal(t, r.ID, page.Items[0].ID)
	})
}

func TestReportService_OfferingLinkage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.cell(t, "Rathmines")

	t.Run("no Offering fund skips posting", func(t *testing.T) {
		r := h.report(t, c.ID, day(2024, 5, 1), "25")
		assert.Nil(t, r.FinanceEntryID)
		assert.Nil(t, h.entryFor(t, r.ID))
	})

	fund := h.offeringFund(t)

	t.Run("offerings create a draft cash entry", func(t *testing.T) {
		r := h.report(t, c.ID, day(2024, 5, 8), "42.50")
		require.NotNil(t, r.FinanceEntryID)

		e := h.entryFor(t, r.ID)
		require.NotNil(t, e)
		assert.Equal(t, *r.FinanceEntryID, e.ID)
		assert.Equal(t, fund.ID, e.FundID)
		assert.Equal(t, h.church.ID, e.OrgUnitID)
		assert.Equal(t, finance.MethodCash, e.Method)
		assert.Equal(t, finance.VerifiedStatusDraft, e.VerifiedStatus)
		require.NotNil(t, e.CellID)
		assert.Equal(t, c.ID, *e.CellID)
		assert.Equal(t, "42.50", e.Amount.StringFixed(2))

		u, err := h.reports.Update(ctx, h.admin, r.ID, ReportInput{
			ReportDate: day(2024, 5, 8), MeetingType: "bible_study", OfferingsTotal: decimal.NewFromInt(60),
		})
		require.NoError(t, err)
		assert.Equal(t, e.ID, *u.FinanceEntryID)
		assert.Equal(t, "60.00", h.entryFor(t, r.ID).Amount.StringFixed(2))

		u, err = h.reports.Update(ctx, h.admin, r.ID, ReportInput{
			ReportDate: day(2024, 5, 8), MeetingType: "bible_study",
		})
		require.NoError(t, err)
		assert.Nil(t, u.FinanceEntryID)
		assert.Nil(t, h.entryFor(t, r.ID))
	})

	t.Run("approving posts a missing entry", func(t *testing.T) {
		r := h.report(t, c.ID, day(2024, 5, 15), "10")
		require.NotNil(t, r.FinanceEntryID)
		require.NoError(t, h.db.Delete(&finance.FinanceEntry{}, "id = ?", *r.FinanceEntryID).Error)

		a, err := h.reports.Approve(ctx, h.admin, r.ID, "reviewed")
		require.NoError(t, err)
		require.NotNil(t, a.FinanceEntryID)
		assert.NotNil(t, h.entryFor(t, r.ID))
	})

	t.Run("locked entries are never touched", func(t *testing.T) {
		r := h.report(t, c.ID, day(2024, 5, 22), "15")
		require.NoError(t, h.db.Model(&finance.FinanceEntry{}).Where("id = ?", *r.FinanceEntryID).
			Update("verified_status", finance.VerifiedStatusLocked).Error)

		_, err := h.reports.Update(ctx, h.admin, r.ID, ReportInput{
			ReportDate: day(2024, 5, 22), MeetingType: "bible_study", OfferingsTotal: decimal.NewFromInt(99),
		})
		require.NoError(t, err)
		assert.Equal(t, "15.00", h.entryFor(t, r.ID).Amount.StringFixed(2))

		require.NoError(t, h.reports.Delete(ctx, h.admin, r.ID))
		assert.NotNil(t, h.entryFor(t, r.ID))
	})

	t.Run("deleting the report deletes its entry", func(t *testing.T) {
		r := h.report(t, c.ID, day(2024, 5, 29), "5")
		require.NoError(t, h.reports.Delete(ctx, h.admin, r.ID))
		assert.Nil(t, h.entryFor(t, r.ID))
	})

	t.Run("reporter without finance permission", func(t *testing.T) {
		reporter := h.actorAt(t, "reporter@example.org", h.church, iam.PermCellReportsCreate)
		r, err := h.reports.Create(ctx, reporter, c.ID, ReportInput{
			ReportDate: day(2024, 6, 5), MeetingType: "prayer_planning", OfferingsTotal: decimal.NewFromInt(20),
		})
		require.NoError(t, err)
		assert.Nil(t, r.FinanceEntryID)
		assert.Nil(t, h.entryFor(t, r.ID))
	})
}
