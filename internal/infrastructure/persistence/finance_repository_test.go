package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newEntry(t *testing.T, tenantID, orgUnitID, fundID uuid.UUID, batchID, personID *uuid.UUID, amount string, date time.Time) *finance.FinanceEntry {
	t.Helper()
	giver := "Anonymous"
	e, err := finance.NewFinanceEntry(tenantID, uuid.Nil, finance.EntryParams{
		OrgUnitID:         orgUnitID,
		BatchID:           batchID,
		FundID:            fundID,
		Amount:            decimal.RequireFromString(amount),
		Method:            finance.MethodCash,
		PersonID:          personID,
		ExternalGiverName: &giver,
		TransactionDate:   date,
	})
	require.NoError(t, err)
	return e
}

func TestGormBatchRepository_SaveWithLock(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGormBatchRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	batch, err := finance.NewBatch(tenantID, uuid.New(), uuid.New(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, batch))

	stale, err := repo.FindByIDForUpdate(ctx, tenantID, batch.ID)
	require.NoError(t, err)

	first := uuid.New()
	require.NoError(t, batch.Verify(first))
	require.NoError(t, repo.SaveWithLock(ctx, batch))

	loaded, err := repo.FindByID(ctx, tenantID, batch.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.VerifiedBy1)
	assert.Equal(t, first, *loaded.VerifiedBy1)
	assert.Equal(t, batch.Version, loaded.Version)

	t.Run("stale copy is rejected", func(t *testing.T) {
		require.NoError(t, stale.Verify(uuid.New()))
		err := repo.SaveWithLock(ctx, stale)
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
	})

	t.Run("other tenant cannot read the batch", func(t *testing.T) {
		_, err := repo.FindByIDForUpdate(ctx, uuid.New(), batch.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestGormBatchRepository_ExistsForService(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGormBatchRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	unitID := uuid.New()
	serviceID := uuid.New()

	batch, err := finance.NewBatch(tenantID, uuid.New(), unitID, &serviceID)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, batch))

	exists, err := repo.ExistsForService(ctx, tenantID, unitID, &serviceID, uuid.Nil)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsForService(ctx, tenantID, unitID, &serviceID, batch.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsForService(ctx, tenantID, unitID, nil, uuid.Nil)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGormBatchRepository_CreateDuplicateService(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGormBatchRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	unitID := uuid.New()
	serviceID := uuid.New()

	first, err := finance.NewBatch(tenantID, uuid.New(), unitID, &serviceID)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, first))

	t.Run("same unit and service is rejected", func(t *testing.T) {
		second, err := finance.NewBatch(tenantID, uuid.New(), unitID, &serviceID)
		require.NoError(t, err)
		err = repo.Create(ctx, second)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
	})

	t.Run("batches without a service may repeat", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			b, err := finance.NewBatch(tenantID, uuid.New(), unitID, nil)
			require.NoError(t, err)
			require.NoError(t, repo.Create(ctx, b))
		}
	})

	t.Run("other tenant may use the same ids", func(t *testing.T) {
		b, err := finance.NewBatch(uuid.New(), uuid.New(), unitID, &serviceID)
		require.NoError(t, err)
		assert.NoError(t, repo.Create(ctx, b))
	})
}

func TestGormFundRepository_NameUniquePerTenant(t *testing.T) {
	db := testutil.NewTestDB(t)
	funds := NewGormFundRepository(db)
	arms := NewGormPartnershipArmRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	fund, err := finance.NewFund(tenantID, uuid.Nil, "Offering", false)
	require.NoError(t, err)
	require.NoError(t, funds.Save(ctx, fund))

	dup, err := finance.NewFund(tenantID, uuid.Nil, "Offering", false)
	require.NoError(t, err)
	err = funds.Save(ctx, dup)
	assert.True(t, errors.Is(err, shared.ErrAlreadyExists))

	other, err := finance.NewFund(uuid.New(), uuid.Nil, "Offering", false)
	require.NoError(t, err)
	assert.NoError(t, funds.Save(ctx, other))

	arm, err := finance.NewPartnershipArm(tenantID, uuid.Nil, "Rhapsody", day(2024, 1, 1), nil)
	require.NoError(t, err)
	require.NoError(t, arms.Save(ctx, arm))

	dupArm, err := finance.NewPartnershipArm(tenantID, uuid.Nil, "Rhapsody", day(2024, 1, 1), nil)
	require.NoError(t, err)
	err = arms.Save(ctx, dupArm)
	assert.True(t, errors.Is(err, shared.ErrAlreadyExists))

	otherArm, err := finance.NewPartnershipArm(uuid.New(), uuid.Nil, "Rhapsody", day(2024, 1, 1), nil)
	require.NoError(t, err)
	assert.NoError(t, arms.Save(ctx, otherArm))
}

func TestGormEntryRepository_SetStatusForBatch(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGormEntryRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	unitID := uuid.New()
	fundID := uuid.New()
	batchID := uuid.New()
	otherBatch := uuid.New()

	inBatch := []*finance.FinanceEntry{
		newEntry(t, tenantID, unitID, fundID, &batchID, nil, "10", day(2024, 3, 3)),
		newEntry(t, tenantID, unitID, fundID, &batchID, nil, "20", day(2024, 3, 3)),
	}
	outside := newEntry(t, tenantID, unitID, fundID, &otherBatch, nil, "30", day(2024, 3, 3))
	for _, e := range append(inBatch, outside) {
		require.NoError(t, repo.Save(ctx, e))
	}

	n, err := repo.SetStatusForBatch(ctx, tenantID, batchID, nil, finance.VerifiedStatusLocked)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, total, err := repo.FindAll(ctx, tenantID, finance.EntryFilter{VerifiedStatus: finance.VerifiedStatusLocked})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	// Only locked entries revert
	require.NoError(t, db.Model(&finance.FinanceEntry{}).Where("id = ?", inBatch[0].ID).
		Update("verified_status", finance.VerifiedStatusVerified).Error)
	n, err = repo.SetStatusForBatch(ctx, tenantID, batchID,
		[]finance.VerifiedStatus{finance.VerifiedStatusLocked}, finance.VerifiedStatusReconciled)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	reverted, err := repo.FindByID(ctx, tenantID, inBatch[1].ID)
	require.NoError(t, err)
	assert.Equal(t, finance.VerifiedStatusReconciled, reverted.VerifiedStatus)

	untouched, err := repo.FindByID(ctx, tenantID, outside.ID)
	require.NoError(t, err)
	assert.Equal(t, finance.VerifiedStatusDraft, untouched.VerifiedStatus)
}

func TestGormEntryRepository_SumForGiver(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGormEntryRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	unitID := uuid.New()
	fundID := uuid.New()
	personID := uuid.New()

	entries := []*finance.FinanceEntry{
		newEntry(t, tenantID, unitID, fundID, nil, &personID, "50.00", day(2024, 5, 10)),
		newEntry(t, tenantID, unitID, fundID, nil, &personID, "25.50", day(2024, 5, 20)),
		newEntry(t, tenantID, unitID, fundID, nil, &personID, "99.00", day(2024, 1, 1)),
		newEntry(t, tenantID, unitID, uuid.New(), nil, &personID, "12.00", day(2024, 5, 15)),
	}
	for _, e := range entries {
		require.NoError(t, repo.Save(ctx, e))
	}

	total, count, err := repo.SumForGiver(ctx, tenantID, personID, fundID, nil, day(2024, 5, 1), day(2024, 5, 31))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.True(t, decimal.RequireFromString("75.50").Equal(total), "got %s", total)

	total, count, err = repo.SumForGiver(ctx, tenantID, uuid.New(), fundID, nil, day(2024, 5, 1), day(2024, 5, 31))
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.True(t, total.IsZero())
}

func TestGormEntryRepository_FindAllFilters(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGormEntryRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	unitA := uuid.New()
	unitB := uuid.New()
	fundID := uuid.New()

	for _, e := range []*finance.FinanceEntry{
		newEntry(t, tenantID, unitA, fundID, nil, nil, "1", day(2024, 2, 1)),
		newEntry(t, tenantID, unitA, fundID, nil, nil, "2", day(2024, 2, 8)),
		newEntry(t, tenantID, unitB, fundID, nil, nil, "3", day(2024, 2, 15)),
	} {
		require.NoError(t, repo.Save(ctx, e))
	}

	tests := []struct {
		name   string
		filter finance.EntryFilter
		want   int64
	}{
		{"tenant only", finance.EntryFilter{}, 3},
		{"single unit", finance.EntryFilter{OrgUnitID: &unitA}, 2},
		{"accessible units", finance.EntryFilter{OrgUnitIDs: []uuid.UUID{unitB}}, 1},
		{"no accessible units", finance.EntryFilter{OrgUnitIDs: []uuid.UUID{}}, 0},
		{"date range", finance.EntryFilter{From: ptr(day(2024, 2, 5)), To: ptr(day(2024, 2, 15))}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, total, err := repo.FindAll(ctx, tenantID, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
			assert.Len(t, list, int(tt.want))
		})
	}

	list, _, err := repo.FindAll(ctx, tenantID, finance.EntryFilter{Page: 1, PageSize: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, unitB, list[0].OrgUnitID, "newest transaction first")
}

func TestGormFundRepository_CountByFundBlocksDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	funds := NewGormFundRepository(db)
	entries := NewGormEntryRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	fund, err := finance.NewFund(tenantID, uuid.Nil, "Tithe", false)
	require.NoError(t, err)
	require.NoError(t, funds.Save(ctx, fund))
	require.NoError(t, entries.Save(ctx, newEntry(t, tenantID, uuid.New(), fund.ID, nil, nil, "5", day(2024, 1, 7))))

	n, err := entries.CountByFund(ctx, tenantID, fund.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	exists, err := funds.ExistsByName(ctx, tenantID, "tithe", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, exists)
}

func ptr[T any](v T) *T {
	return &v
}
