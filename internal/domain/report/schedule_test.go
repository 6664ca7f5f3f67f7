package report

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestScheduleNextRun(t *testing.T) {
	// Wednesday 10 January 2024, 09:30 UTC
	now := time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		p    ScheduleParams
		want time.Time
	}{
		{"daily later today", ScheduleParams{Frequency: FrequencyDaily, TimeOfDay: "18:00"}, time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)},
		{"daily already passed", ScheduleParams{Frequency: FrequencyDaily, TimeOfDay: "08:00"}, time.Date(2024, 1, 11, 8, 0, 0, 0, time.UTC)},
		{"weekly friday", ScheduleParams{Frequency: FrequencyWeekly, DayOfWeek: intPtr(4), TimeOfDay: "08:00"}, time.Date(2024, 1, 12, 8, 0, 0, 0, time.UTC)},
		{"weekly monday wraps", ScheduleParams{Frequency: FrequencyWeekly, DayOfWeek: intPtr(0), TimeOfDay: "08:00"}, time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)},
		{"weekly today passed", ScheduleParams{Frequency: FrequencyWeekly, DayOfWeek: intPtr(2), TimeOfDay: "08:00"}, time.Date(2024, 1, 17, 8, 0, 0, 0, time.UTC)},
		{"monthly later this month", ScheduleParams{Frequency: FrequencyMonthly, DayOfMonth: intPtr(20), TimeOfDay: "07:00"}, time.Date(2024, 1, 20, 7, 0, 0, 0, time.UTC)},
		{"monthly clamps short month", ScheduleParams{Frequency: FrequencyMonthly, DayOfMonth: intPtr(31), TimeOfDay: "07:00"}, time.Date(2024, 1, 31, 7, 0, 0, 0, time.UTC)},
		{"quarterly", ScheduleParams{Frequency: FrequencyQuarterly, TimeOfDay: "06:00"}, time.Date(2024, 4, 1, 6, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.p.Recipients = []string{"finance@example.org"}
			s, err := NewSchedule(uuid.New(), uuid.New(), tt.p, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.NextRunAt)
		})
	}

	t.Run("monthly clamps into february", func(t *testing.T) {
		s, err := NewSchedule(uuid.New(), uuid.New(), ScheduleParams{
			Frequency: FrequencyMonthly, DayOfMonth: intPtr(30), TimeOfDay: "07:00",
			Recipients: []string{"a@example.org"},
		}, time.Date(2024, 1, 31, 8, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 2, 29, 7, 0, 0, 0, time.UTC), s.NextRunAt)
	})

	t.Run("quarterly in december rolls the year", func(t *testing.T) {
		s, err := NewSchedule(uuid.New(), uuid.New(), ScheduleParams{
			Frequency: FrequencyQuarterly, TimeOfDay: "06:00", Recipients: []string{"a@example.org"},
		}, time.Date(2024, 12, 5, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC), s.NextRunAt)
	})
}

func TestScheduleValidationAndRuns(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)
	base := ScheduleParams{Frequency: FrequencyDaily, TimeOfDay: "10:00", Recipients: []string{"a@example.org"}}

	bad := base
	bad.TimeOfDay = "25:00"
	_, err := NewSchedule(uuid.New(), uuid.New(), bad, now)
	assert.Error(t, err)

	bad = base
	bad.Frequency = FrequencyWeekly
	_, err = NewSchedule(uuid.New(), uuid.New(), bad, now)
	assert.Error(t, err, "weekly needs a day")

	bad = base
	bad.Recipients = []string{"nobody"}
	_, err = NewSchedule(uuid.New(), uuid.New(), bad, now)
	assert.Error(t, err)

	s, err := NewSchedule(uuid.New(), uuid.New(), base, now)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, s.Format)

	runAt := s.NextRunAt
	s.RecordRun(runAt, nil)
	assert.True(t, s.IsActive)
	assert.Equal(t, runAt.AddDate(0, 0, 1), s.NextRunAt)

	s.RecordRun(s.NextRunAt, errors.New("template missing"))
	assert.False(t, s.IsActive)
	assert.Equal(t, "template missing", *s.LastError)
}
