package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/report"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type reportFixture struct {
	tenantID uuid.UUID
	unitA    uuid.UUID
	unitB    uuid.UUID
	tithe    uuid.UUID
	offering uuid.UUID
}

func seedReportData(t *testing.T, db *gorm.DB) reportFixture {
	t.Helper()
	ctx := context.Background()
	f := reportFixture{tenantID: uuid.New(), unitA: uuid.New(), unitB: uuid.New(), tithe: uuid.New(), offering: uuid.New()}
	entries := NewGormEntryRepository(db)

	add := func(unit, fund uuid.UUID, amount string, status finance.VerifiedStatus, date ...int) {
		e := newEntry(t, f.tenantID, unit, fund, nil, nil, amount, day(date[0], 1, date[1]))
		e.VerifiedStatus = status
		require.NoError(t, entries.Save(ctx, e))
	}
	add(f.unitA, f.tithe, "10", finance.VerifiedStatusVerified, 2024, 7)
	add(f.unitA, f.tithe, "20", finance.VerifiedStatusLocked, 2024, 14)
	add(f.unitA, f.offering, "5", finance.VerifiedStatusReconciled, 2024, 14)
	add(f.unitA, f.offering, "100", finance.VerifiedStatusDraft, 2024, 14)
	add(f.unitB, f.tithe, "40", finance.VerifiedStatusVerified, 2024, 21)

	services := NewGormServiceRepository(db)
	for i, unit := range []uuid.UUID{f.unitA, f.unitB} {
		svc, err := registry.NewService(f.tenantID, uuid.Nil, unit, "Sunday", day(2024, 1, 7), nil)
		require.NoError(t, err)
		require.NoError(t, services.Save(ctx, svc))
		att, err := registry.NewAttendance(f.tenantID, uuid.Nil, svc.ID, registry.AttendanceCounts{Men: 10 * (i + 1), Women: 5}, nil)
		require.NoError(t, err)
		require.NoError(t, services.SaveAttendance(ctx, att))
	}
	return f
}

func TestGormQueryExecutor_Finance(t *testing.T) {
	db := testutil.NewTestDB(t)
	exec := NewGormQueryExecutor(db)
	ctx := context.Background()
	f := seedReportData(t, db)
	both := []uuid.UUID{f.unitA, f.unitB}

	t.Run("data quality defaults skip drafts", func(t *testing.T) {
		res, err := exec.Execute(ctx, f.tenantID, report.QueryDefinition{
			EntityType:   report.EntityFinanceEntries,
			Aggregations: []report.Aggregation{{Field: "amount", Function: "sum", Alias: "total"}},
		}, both)
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.EqualValues(t, 75, res.Rows[0]["total"])
	})

	t.Run("explicit data quality includes drafts", func(t *testing.T) {
		res, err := exec.Execute(ctx, f.tenantID, report.QueryDefinition{
			EntityType:   report.EntityFinanceEntries,
			Aggregations: []report.Aggregation{{Function: "count", Alias: "n"}},
			DataQuality:  &report.DataQuality{VerifiedStatus: []string{"draft"}},
		}, both)
		require.NoError(t, err)
		assert.EqualValues(t, 1, res.Rows[0]["n"])
	})

	t.Run("results are restricted to accessible units", func(t *testing.T) {
		res, err := exec.Execute(ctx, f.tenantID, report.QueryDefinition{
			EntityType: report.EntityFinanceEntries,
		}, []uuid.UUID{f.unitB})
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Total)

		res, err = exec.Execute(ctx, f.tenantID, report.QueryDefinition{
			EntityType: report.EntityFinanceEntries,
		}, nil)
		require.NoError(t, err)
		assert.Zero(t, res.Total)
	})

	t.Run("group by fund ordered by total", func(t *testing.T) {
		res, err := exec.Execute(ctx, f.tenantID, report.QueryDefinition{
			EntityType:   report.EntityFinanceEntries,
			GroupBy:      []string{"fund_id"},
			Aggregations: []report.Aggregation{{Field: "amount", Function: "sum", Alias: "total"}},
			OrderBy:      []report.OrderBy{{Field: "total", Direction: "desc"}},
		}, both)
		require.NoError(t, err)
		require.Len(t, res.Rows, 2)
		assert.Equal(t, f.tithe.String(), res.Rows[0]["fund_id"])
		assert.EqualValues(t, 70, res.Rows[0]["total"])
		assert.EqualValues(t, 5, res.Rows[1]["total"])
		assert.Equal(t, int64(2), res.Total)
	})

	t.Run("filters with operators", func(t *testing.T) {
		res, err := exec.Execute(ctx, f.tenantID, report.QueryDefinition{
			EntityType: report.EntityFinanceEntries,
			Filters: map[string]any{
				"transaction_date": map[string]any{"gte": "2024-01-10"},
				"fund_id":          []any{f.tithe.String()},
			},
		}, both)
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Total)
	})

	t.Run("date trunc by month", func(t *testing.T) {
		res, err := exec.Execute(ctx, f.tenantID, report.QueryDefinition{
			EntityType:   report.EntityFinanceEntries,
			GroupBy:      []string{"date_trunc_month_transaction_date"},
			Aggregations: []report.Aggregation{{Function: "count", Alias: "n"}},
		}, both)
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, "2024-01-01", res.Rows[0]["date_trunc_month_transaction_date"])
		assert.EqualValues(t, 4, res.Rows[0]["n"])
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		_, err := exec.Execute(ctx, f.tenantID, report.QueryDefinition{
			EntityType: report.EntityFinanceEntries,
			Filters:    map[string]any{"password": "x"},
		}, both)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestGormQueryExecutor_AttendanceScopedThroughService(t *testing.T) {
	db := testutil.NewTestDB(t)
	exec := NewGormQueryExecutor(db)
	f := seedReportData(t, db)

	res, err := exec.Execute(context.Background(), f.tenantID, report.QueryDefinition{
		EntityType:   report.EntityAttendance,
		Aggregations: []report.Aggregation{{Field: "total_attendance", Function: "sum", Alias: "people"}},
	}, []uuid.UUID{f.unitA})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.EqualValues(t, 15, res.Rows[0]["people"])
}
