package registry

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextMemberCode(t *testing.T) {
	tests := []struct {
		highest string
		want    string
	}{
		{"", "MEM-0001"},
		{"MEM-0001", "MEM-0002"},
		{"MEM-0099", "MEM-0100"},
		{"MEM-9999", "MEM-10000"},
		{"LEGACY", "MEM-0001"},
		{"MEM-abc", "MEM-0001"},
	}
	for _, tt := range tests {
		t.Run(tt.highest, func(t *testing.T) {
			assert.Equal(t, tt.want, NextMemberCode(tt.highest))
		})
	}
}

func TestNewPerson(t *testing.T) {
	tenantID, unit := uuid.New(), uuid.New()

	t.Run("normalises optional fields", func(t *testing.T) {
		email := " Ada@Example.com "
		blank := "  "
		p, err := NewPerson(tenantID, uuid.New(), unit, PersonDetails{
			FirstName: " Ada ",
			LastName:  "Obi",
			Gender:    GenderFemale,
			Email:     &email,
			Phone:     &blank,
		})
		require.NoError(t, err)
		assert.Equal(t, "Ada", p.FirstName)
		assert.Equal(t, "ada@example.com", *p.Email)
		assert.Nil(t, p.Phone)
		assert.True(t, p.ConsentContact)
		assert.Equal(t, "Ada Obi", p.FullName())
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		bad := "not-an-email"
		future := time.Now().AddDate(1, 0, 0)
		cases := map[string]PersonDetails{
			"missing name": {FirstName: "", LastName: "Obi", Gender: GenderMale},
			"bad gender":   {FirstName: "A", LastName: "B", Gender: "x"},
			"bad email":    {FirstName: "A", LastName: "B", Gender: GenderMale, Email: &bad},
			"future dob":   {FirstName: "A", LastName: "B", Gender: GenderMale, DOB: &future},
		}
		for name, d := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := NewPerson(tenantID, uuid.New(), unit, d)
				assert.Error(t, err)
			})
		}
	})
}

func TestAttendanceTotals(t *testing.T) {
	a, err := NewAttendance(uuid.New(), uuid.New(), uuid.New(), AttendanceCounts{Men: 10, Women: 12, Teens: 3, Kids: 5, FirstTimers: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, 30, a.TotalAttendance)

	require.NoError(t, a.SetCounts(AttendanceCounts{Men: 1, Women: 1}))
	assert.Equal(t, 2, a.TotalAttendance)

	assert.Error(t, a.SetCounts(AttendanceCounts{Men: -1}))
}

func TestFirstTimerConvert(t *testing.T) {
	ft, err := NewFirstTimer(uuid.New(), uuid.New(), uuid.New(), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, FirstTimerNew, ft.Status)

	person := uuid.New()
	require.NoError(t, ft.ConvertTo(person))
	assert.Equal(t, FirstTimerMember, ft.Status)
	assert.Equal(t, person, *ft.PersonID)
	assert.Error(t, ft.ConvertTo(uuid.New()))

	st, err := ParseFirstTimerStatus("contacted")
	require.NoError(t, err)
	assert.Equal(t, FirstTimerContacted, st)
}
