package slotlabel

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(y int, mo time.Month, d, h, m int) time.Time {
	return time.Date(y, mo, d, h, m, 0, 0, time.UTC)
}

func TestGenerate(t *testing.T) {
	day := at(2025, time.January, 6, 0, 0)

	cases := []struct {
		name       string
		start, end time.Time
		want       string
	}{
		{"morning", at(2025, 1, 6, 9, 0), at(2025, 1, 6, 9, 15), "Monday 01/06/25 9:00–9:15 AM"},
		{"afternoon", at(2025, 1, 6, 12, 45), at(2025, 1, 6, 13, 0), "Monday 01/06/25 12:45–1:00 PM"},
		{"across noon", at(2025, 1, 6, 11, 45), at(2025, 1, 6, 12, 0), "Monday 01/06/25 11:45 AM–12:00 PM"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Generate(day, tc.start, tc.end))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	day := at(2025, time.March, 14, 0, 0)
	for minute := 8 * 60; minute < 21*60; minute += 15 {
		start := day.Add(time.Duration(minute) * time.Minute)
		end := start.Add(15 * time.Minute)
		label := Generate(day, start, end)

		gotStart, gotEnd, err := Parse(label)
		require.NoError(t, err, label)
		assert.Equal(t, start, gotStart, label)
		assert.Equal(t, end, gotEnd, label)
	}
}

func TestParseVariants(t *testing.T) {
	wantStart := at(2025, 1, 6, 9, 0)
	wantEnd := at(2025, 1, 6, 9, 15)

	labels := []string{
		"Monday 01/06/25 9:00–9:15 AM",
		"Monday 01/06/25 9:00—9:15 AM",
		"Monday 01/06/25 9:00-9:15 AM",
		"Monday 01/06/25 9:00 to 9:15 AM",
		"Monday 01/06/2025 9:00–9:15 AM",
		"Mon 1/6/2025 09:00-09:15 am",
		"Monday 01/06/25 9:00 AM–9:15 AM",
		"Monday 01/06/25 9:00 AM – 9:15",
		"  Monday 01/06/25 9:00–9:15  ",
	}
	for _, label := range labels {
		start, end, err := Parse(label)
		require.NoError(t, err, label)
		assert.Equal(t, wantStart, start, label)
		assert.Equal(t, wantEnd, end, label)
	}
}

func TestParseMeridiemPolicy(t *testing.T) {
	start, end, err := Parse("Tuesday 01/07/25 1:00–1:15 PM")
	require.NoError(t, err)
	assert.Equal(t, 13, start.Hour())
	assert.Equal(t, 13, end.Hour())

	start, end, err = Parse("Tuesday 01/07/25 13:00-13:15")
	require.NoError(t, err)
	assert.Equal(t, at(2025, 1, 7, 13, 0), start)
	assert.Equal(t, at(2025, 1, 7, 13, 15), end)
}

func TestParseEndBeforeStartAddsTwelveHours(t *testing.T) {
	start, end, err := Parse("Monday 01/06/25 11:45–12:00")
	require.NoError(t, err)
	assert.Equal(t, at(2025, 1, 6, 11, 45), start)
	assert.Equal(t, at(2025, 1, 6, 12, 0), end)
	assert.True(t, end.After(start))
}

func TestParseFormatErrors(t *testing.T) {
	for _, label := range []string{
		"",
		"tomorrow at nine",
		"Monday 13/45/25 9:00–9:15 AM",
		"Monday 02/30/25 9:00–9:15 AM",
		"Monday 01/06/25 9:75–9:90 AM",
		"Monday 01/06/25 13:00–13:15 PM",
		"Monday 01/06/25 9:00 until 9:15",
	} {
		_, _, err := Parse(label)
		require.Error(t, err, label)
		var fe *FormatError
		assert.True(t, errors.As(err, &fe), label)
		assert.True(t, errors.Is(err, ErrFormat), label)
	}
}

func TestParseInAnchorsLocation(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	start, _, err := ParseIn("Monday 01/06/25 9:00–9:15 AM", la)
	require.NoError(t, err)
	assert.Equal(t, la, start.Location())
	assert.Equal(t, 9, start.Hour())
}

func TestCanonical(t *testing.T) {
	const want = "Monday 01/06/25 9:00–9:15 AM"
	for _, label := range []string{
		want,
		"Monday 01/06/25 9:00-9:15 AM",
		"Monday 01/06/25 9:00—9:15 AM",
		"Monday 01/06/2025 9:00 AM to 9:15 AM",
		"Mon 1/6/25 9:00 am - 9:15 am",
	} {
		got, err := Canonical(label)
		require.NoError(t, err, label)
		assert.Equal(t, want, got, label)
	}

	got, err := Canonical("Monday 01/06/25 11:45 AM–12:00 PM")
	require.NoError(t, err)
	assert.Equal(t, "Monday 01/06/25 11:45 AM–12:00 PM", got)

	_, err = Canonical("whenever works")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestHelpers(t *testing.T) {
	year, week, err := ISOWeek("Monday 01/06/25 9:00–9:15 AM")
	require.NoError(t, err)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 2, week)

	merged, err := Merge("Monday 01/06/25 9:00–9:15 AM", "Monday 01/06/25 9:15–9:30 AM")
	require.NoError(t, err)
	assert.Equal(t, "Monday 01/06/25 9:00–9:30 AM", merged)

	labels := []string{
		"Monday 01/06/25 1:00–1:15 PM",
		"broken",
		"Monday 01/06/25 9:00–9:15 AM",
	}
	Sort(labels)
	assert.Equal(t, []string{
		"Monday 01/06/25 9:00–9:15 AM",
		"Monday 01/06/25 1:00–1:15 PM",
		"broken",
	}, labels)
}
