package finance

import (
	"testing"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() EntryParams {
	person := uuid.New()
	return EntryParams{
		OrgUnitID:       uuid.New(),
		FundID:          uuid.New(),
		Amount:          decimal.RequireFromString("25.505"),
		Method:          MethodCash,
		PersonID:        &person,
		TransactionDate: time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
	}
}

func TestNewFinanceEntry(t *testing.T) {
	tenantID := uuid.New()

	t.Run("defaults currency, status and source", func(t *testing.T) {
		e, err := NewFinanceEntry(tenantID, uuid.New(), validParams())
		require.NoError(t, err)
		assert.Equal(t, "EUR", e.Currency)
		assert.Equal(t, VerifiedStatusDraft, e.VerifiedStatus)
		assert.Equal(t, SourceManual, e.SourceType)
		assert.Equal(t, "25.51", e.Amount.StringFixed(2))
	})

	t.Run("requires a giver", func(t *testing.T) {
		p := validParams()
		p.PersonID = nil
		blank := "   "
		p.ExternalGiverName = &blank
		_, err := NewFinanceEntry(tenantID, uuid.New(), p)
		assert.Equal(t, shared.CodeInvalidInput, codeOf(err))

		name := "Anonymous donor"
		p.ExternalGiverName = &name
		e, err := NewFinanceEntry(tenantID, uuid.New(), p)
		require.NoError(t, err)
		assert.Equal(t, name, *e.ExternalGiverName)
	})

	t.Run("rejects non-positive amount and bad method", func(t *testing.T) {
		p := validParams()
		p.Amount = decimal.Zero
		_, err := NewFinanceEntry(tenantID, uuid.New(), p)
		assert.Equal(t, shared.CodeInvalidInput, codeOf(err))

		p = validParams()
		p.Method = "crypto"
		_, err = NewFinanceEntry(tenantID, uuid.New(), p)
		assert.Equal(t, shared.CodeInvalidInput, codeOf(err))
	})
}

func TestFinanceEntryStatus(t *testing.T) {
	e, err := NewFinanceEntry(uuid.New(), uuid.New(), validParams())
	require.NoError(t, err)

	require.NoError(t, e.SetVerifiedStatus(VerifiedStatusVerified))
	assert.Equal(t, VerifiedStatusVerified, e.VerifiedStatus)

	assert.Equal(t, shared.CodeInvalidInput, codeOf(e.SetVerifiedStatus(VerifiedStatusLocked)))

	require.NoError(t, e.Reconcile())
	assert.Equal(t, VerifiedStatusReconciled, e.VerifiedStatus)

	e.VerifiedStatus = VerifiedStatusLocked
	assert.Equal(t, shared.CodeInvalidState, codeOf(e.SetVerifiedStatus(VerifiedStatusDraft)))
	assert.Equal(t, shared.CodeInvalidState, codeOf(e.ChangeAmount(decimal.NewFromInt(5))))
}

func TestPartnershipFulfilment(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	target := decimal.NewNullDecimal(decimal.NewFromInt(200))
	p, err := NewPartnership(uuid.New(), uuid.New(), uuid.New(), uuid.New(), nil, CadenceMonthly, start, nil, target)
	require.NoError(t, err)

	t.Run("window ends today", func(t *testing.T) {
		from, to := p.Window(time.Date(2024, 3, 31, 15, 4, 0, 0, time.UTC))
		assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), to)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), from)
	})

	t.Run("window ends at end date", func(t *testing.T) {
		end := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
		q := *p
		q.EndDate = &end
		q.Cadence = CadenceWeekly
		from, to := q.Window(time.Now())
		assert.Equal(t, end, to)
		assert.Equal(t, end.AddDate(0, 0, -7), from)
	})

	t.Run("percentage of positive target", func(t *testing.T) {
		f := NewFulfilment(p, start, start, decimal.NewFromInt(50), 2)
		require.NotNil(t, f.Percentage)
		assert.InDelta(t, 25.0, *f.Percentage, 0.001)
	})

	t.Run("no percentage without target", func(t *testing.T) {
		q := *p
		q.TargetAmount = decimal.NullDecimal{}
		f := NewFulfilment(&q, start, start, decimal.NewFromInt(50), 2)
		assert.Nil(t, f.Percentage)
	})

	t.Run("rejects unknown cadence", func(t *testing.T) {
		_, err := NewPartnership(uuid.New(), uuid.New(), uuid.New(), uuid.New(), nil, "daily", start, nil, target)
		assert.Equal(t, shared.CodeInvalidInput, codeOf(err))
	})
}
