package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateTrunc(t *testing.T) {
	dt, ok := ParseDateTrunc("date_trunc_month_transaction_date")
	require.True(t, ok)
	assert.Equal(t, DateTrunc{Unit: "month", Field: "transaction_date"}, dt)

	_, ok = ParseDateTrunc("date_trunc_fortnight_transaction_date")
	assert.False(t, ok)
	_, ok = ParseDateTrunc("transaction_date")
	assert.False(t, ok)
}

func TestQueryDefinitionNormalize(t *testing.T) {
	t.Run("fills defaults and aliases", func(t *testing.T) {
		q, err := QueryDefinition{
			EntityType:   EntityFinanceEntries,
			Aggregations: []Aggregation{{Field: "amount", Function: "SUM"}, {Function: "count"}},
			GroupBy:      []string{"fund_id", "date_trunc_month_transaction_date"},
			OrderBy:      []OrderBy{{Field: "sum_amount", Direction: "DESC"}},
		}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, DefaultLimit, q.Limit)
		assert.Equal(t, "sum_amount", q.Aggregations[0].Alias)
		assert.Equal(t, "sum", q.Aggregations[0].Function)
		assert.Equal(t, "count", q.Aggregations[1].Alias)
		assert.Equal(t, "desc", q.OrderBy[0].Direction)
	})

	t.Run("attendance exposes service fields", func(t *testing.T) {
		_, err := QueryDefinition{
			EntityType: EntityAttendance,
			Filters:    map[string]any{"service_date": map[string]any{"gte": "2024-01-01"}},
			GroupBy:    []string{"date_trunc_week_service_date"},
		}.Normalize()
		require.NoError(t, err)
	})

	tests := []struct {
		name string
		q    QueryDefinition
	}{
		{"unknown entity", QueryDefinition{EntityType: "invoices"}},
		{"limit too large", QueryDefinition{EntityType: EntityPeople, Limit: MaxLimit + 1}},
		{"unknown filter", QueryDefinition{EntityType: EntityPeople, Filters: map[string]any{"password": "x"}}},
		{"unknown function", QueryDefinition{EntityType: EntityPeople, Aggregations: []Aggregation{{Field: "id", Function: "median"}}}},
		{"sum without field", QueryDefinition{EntityType: EntityPeople, Aggregations: []Aggregation{{Function: "sum"}}}},
		{"bad alias", QueryDefinition{EntityType: EntityPeople, Aggregations: []Aggregation{{Function: "count", Alias: "x; drop table"}}}},
		{"truncate non-date", QueryDefinition{EntityType: EntityFinanceEntries, GroupBy: []string{"date_trunc_month_amount"}}},
		{"order by non-grouped", QueryDefinition{EntityType: EntityPeople, GroupBy: []string{"gender"}, OrderBy: []OrderBy{{Field: "last_name"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.q.Normalize()
			assert.Error(t, err)
		})
	}

	t.Run("data quality defaults", func(t *testing.T) {
		q := QueryDefinition{EntityType: EntityFinanceEntries}
		assert.Equal(t, []string{"verified", "reconciled", "locked"}, q.VerifiedStatuses())
		assert.Equal(t, []string{"approved"}, q.CellReportStatuses())
		q.DataQuality = &DataQuality{VerifiedStatus: []string{"draft"}}
		assert.Equal(t, []string{"draft"}, q.VerifiedStatuses())
	})
}
