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
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryService_Create(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	date := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	giver := "Visitor"

	tests := []struct {
		name  string
		input CreateEntryInput
		want  error
	}{
		{
			name:  "giver is required",
			input: CreateEntryInput{OrgUnitID: h.church.ID, FundID: h.fund.ID, Amount: decimal.NewFromInt(10), TransactionDate: date},
			want:  shared.ErrInvalidInput,
		},
		{
			name:  "amount must be positive",
			input: CreateEntryInput{OrgUnitID: h.church.ID, FundID: h.fund.ID, Amount: decimal.Zero, ExternalGiverName: &giver, TransactionDate: date},
			want:  shared.ErrInvalidInput,
		},
		{
			name:  "unknown fund",
			input: CreateEntryInput{OrgUnitID: h.church.ID, FundID: uuid.New(), Amount: decimal.NewFromInt(10), ExternalGiverName: &giver, TransactionDate: date},
			want:  shared.ErrNotFound,
		},
		{
			name: "unknown person",
			input: CreateEntryInput{OrgUnitID: h.church.ID, FundID: h.fund.ID, Amount: decimal.NewFromInt(10),
				PersonID: ptr(uuid.New()), TransactionDate: date},
			want: shared.ErrNotFound,
		},
		{
			name: "unknown method",
			input: CreateEntryInput{OrgUnitID: h.church.ID, FundID: h.fund.ID, Amount: decimal.NewFromInt(10),
				Method: "bitcoin", ExternalGiverName: &giver, TransactionDate: date},
			want: shared.ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.entries.Create(ctx, h.admin, tt.input)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	t.Run("defaults", func(t *testing.T) {
		person := h.person(t, "Sean")
		e, err := h.entries.Create(ctx, h.admin, CreateEntryInput{
			OrgUnitID: h.church.ID, FundID: h.fund.ID, Amount: decimal.RequireFromString("12.345"),
			PersonID: &person.ID, TransactionDate: date,
		})
		require.NoError(t, err)
		assert.Equal(t, "12.35", e.Amount.StringFixed(2))
		assert.Equal(t, finance.DefaultCurrency, e.Currency)
		assert.Equal(t, string(finance.MethodCash), e.Method)
		assert.Equal(t, string(finance.VerifiedStatusDraft), e.VerifiedStatus)
		assert.Equal(t, string(finance.SourceManual), e.SourceType)
	})

	t.Run("permission is required", func(t *testing.T) {
		viewer := h.user(t, "viewer@example.org", iam.PermReportsQuery)
		_, err := h.entries.Create(ctx, viewer, CreateEntryInput{
			OrgUnitID: h.church.ID, FundID: h.fund.ID, Amount: decimal.NewFromInt(1), ExternalGiverName: &giver, TransactionDate: date,
		})
		assert.True(t, errors.Is(err, shared.ErrForbidden))
	})
}

func TestEntryService_VerifyAndModify(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	e := h.entry(t, nil, "40")

	t.Run("locked cannot be set directly", func(t *testing.T) {
		_, err := h.entries.Verify(ctx, h.admin, e.ID, string(finance.VerifiedStatusLocked))
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("verify then reconcile", func(t *testing.T) {
		v, err := h.entries.Verify(ctx, h.admin, e.ID, string(finance.VerifiedStatusVerified))
		require.NoError(t, err)
		assert.Equal(t, string(finance.VerifiedStatusVerified), v.VerifiedStatus)

		r, err := h.entries.Reconcile(ctx, h.admin, e.ID)
		require.NoError(t, err)
		assert.Equal(t, string(finance.VerifiedStatusReconciled), r.VerifiedStatus)
	})

	t.Run("update amount and reference", func(t *testing.T) {
		amount := decimal.RequireFromString("45.5")
		ref := " KP-123 "
		u, err := h.entries.Update(ctx, h.admin, e.ID, UpdateEntryInput{Amount: &amount, Reference: &ref})
		require.NoError(t, err)
		assert.Equal(t, "45.50", u.Amount.StringFixed(2))
		require.NotNil(t, u.Reference)
		assert.Equal(t, "KP-123", *u.Reference)
	})

	t.Run("clearing the only giver is rejected", func(t *testing.T) {
		empty := ""
		_, err := h.entries.Update(ctx, h.admin, e.ID, UpdateEntryInput{ExternalGiverName: &empty})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("locked entries are frozen", func(t *testing.T) {
		require.NoError(t, h.db.Model(&finance.FinanceEntry{}).Where("id = ?", e.ID).
			Update("verified_status", finance.VerifiedStatusLocked).Error)

		amount := decimal.NewFromInt(1)
		_, err := h.entries.Update(ctx, h.admin, e.ID, UpdateEntryInput{Amount: &amount})
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		_, err = h.entries.Reconcile(ctx, h.admin, e.ID)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		assert.True(t, errors.Is(h.entries.Delete(ctx, h.admin, e.ID), shared.ErrInvalidState))
	})

	t.Run("entries in a locked batch are frozen", func(t *testing.T) {
		batch, err := h.batches.Create(ctx, h.admin, CreateBatchInput{OrgUnitID: h.church.ID})
		require.NoError(t, err)
		inBatch := h.entry(t, &batch.ID, "5")
		require.NoError(t, h.db.Model(&finance.Batch{}).Where("id = ?", batch.ID).
			Update("status", finance.BatchStatusLocked).Error)

		assert.True(t, errors.Is(h.entries.Delete(ctx, h.admin, inBatch.ID), shared.ErrInvalidState))
	})

	t.Run("delete and list", func(t *testing.T) {
		other := h.entry(t, nil, "7")
		require.NoError(t, h.entries.Delete(ctx, h.admin, other.ID))

		page, err := h.entries.List(ctx, h.admin, EntryListFilter{FundID: &h.fund.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)

		_, err = h.entries.List(ctx, h.admin, EntryListFilter{VerifiedStatus: "pending"})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

// lockingRepos records which batch read CreateInTx uses
type lockingRepos struct {
	core.TransactionalRepositories
	batches *lockingBatchRepo
}

func (r lockingRepos) BatchRepo() finance.BatchRepository { return r.batches }

type lockingBatchRepo struct {
	finance.BatchRepository
	locked int
}

func (r *lockingBatchRepo) FindByID(context.Context, uuid.UUID, uuid.UUID) (*finance.Batch, error) {
	return nil, errors.New("batch must be read with a row lock")
}

func (r *lockingBatchRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.Batch, error) {
	r.locked++
	return r.BatchRepository.FindByIDForUpdate(ctx, tenantID, id)
}

func TestEntryService_CreateInTxLocksBatch(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	batch, err := h.batches.Create(ctx, h.admin, CreateBatchInput{OrgUnitID: h.church.ID})
	require.NoError(t, err)
	giver := "Visitor"

	scope := persistence.NewGormTransactionScope(h.db)
	var recorder *lockingBatchRepo
	err = scope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		recorder = &lockingBatchRepo{BatchRepository: repos.BatchRepo()}
		_, err := h.entries.CreateInTx(ctx, lockingRepos{TransactionalRepositories: repos, batches: recorder}, h.admin, CreateEntryInput{
			OrgUnitID: h.church.ID, BatchID: &batch.ID, FundID: h.fund.ID, Amount: decimal.NewFromInt(5),
			ExternalGiverName: &giver, TransactionDate: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, recorder.locked)
	assert.Len(t, h.entryStatuses(t, batch.ID), 1)
}

func ptr[T any](v T) *T {
	return &v
}
