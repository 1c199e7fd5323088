package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atlab/internal/slotlabel"
)

// Monday 2025-01-06.
var monday = time.Date(2025, time.January, 6, 7, 30, 0, 0, time.UTC)

func TestGenerateSkipsClosedDays(t *testing.T) {
	hours := WeeklyHours{
		time.Monday:    {Open: "09:00", Close: "10:00"},
		time.Wednesday: {Open: "13:00", Close: "14:00"},
	}
	days, err := Generate(hours, 7, 15, monday)
	require.NoError(t, err)
	require.Len(t, days, 2)

	assert.Equal(t, "Monday 01/06/25", days[0].Label)
	assert.Equal(t, []string{
		"Monday 01/06/25 9:00–9:15 AM",
		"Monday 01/06/25 9:15–9:30 AM",
		"Monday 01/06/25 9:30–9:45 AM",
		"Monday 01/06/25 9:45–10:00 AM",
	}, days[0].Slots)
	assert.Equal(t, "Wednesday 01/08/25", days[1].Label)
	assert.Len(t, days[1].Slots, 4)
}

func TestGenerateDropsShortTail(t *testing.T) {
	hours := WeeklyHours{time.Monday: {Open: "09:15", Close: "10:00"}}
	days, err := Generate(hours, 1, 20, monday)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, []string{
		"Monday 01/06/25 9:15–9:35 AM",
		"Monday 01/06/25 9:35–9:55 AM",
	}, days[0].Slots)
}

func TestGeneratedSlotsNeverOverlapOrOverrun(t *testing.T) {
	for _, campus := range DefaultCampuses() {
		days, err := Generate(campus.Hours, 21, 15, monday)
		require.NoError(t, err)
		for _, day := range days {
			closing, err := at(day.Date, campus.Hours[day.Date.Weekday()].Close)
			require.NoError(t, err)

			var prevEnd time.Time
			for _, label := range day.Slots {
				start, end, err := slotlabel.Parse(label)
				require.NoError(t, err, label)
				assert.Equal(t, 15*time.Minute, end.Sub(start), label)
				assert.False(t, end.After(closing), label)
				if !prevEnd.IsZero() {
					assert.False(t, start.Before(prevEnd), label)
				}
				prevEnd = end
			}
		}
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	_, err := Generate(WeeklyHours{time.Monday: {Open: "9am", Close: "10:00"}}, 1, 15, monday)
	assert.Error(t, err)

	_, err = Generate(WeeklyHours{}, 1, 0, monday)
	assert.Error(t, err)
}

func TestPairsAndFree(t *testing.T) {
	slots := []string{
		"Monday 01/06/25 9:00–9:15 AM",
		"Monday 01/06/25 9:15–9:30 AM",
		"Monday 01/06/25 10:00–10:15 AM",
	}
	pairs := Pairs(slots)
	require.Len(t, pairs, 1)
	assert.Equal(t, [2]string{slots[0], slots[1]}, pairs[0])

	free := Free(slots, map[string]struct{}{slots[1]: {}})
	assert.Equal(t, []string{slots[0], slots[2]}, free)
}

func TestScheduleLookup(t *testing.T) {
	s := NewSchedule(nil, 0, 0, nil)
	c, ok := s.Campus("slo at lab")
	require.True(t, ok)
	assert.Equal(t, CampusSLO, c.Name)

	_, ok = s.Campus("Paso Robles")
	assert.False(t, ok)

	days, err := s.Days(c, monday)
	require.NoError(t, err)
	// SLO is closed on Sundays only.
	assert.Len(t, days, 18)

	day, ok := Find(days, "Saturday 01/11/25")
	require.True(t, ok)
	assert.Equal(t, "Saturday 01/11/25 9:15–9:30 AM", day.Slots[0])
	assert.Equal(t, "Saturday 01/11/25 12:45–1:00 PM", day.Slots[len(day.Slots)-1])
}
