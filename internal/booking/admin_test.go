package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atlab/internal/availability"
)

func booked(id, email, slot string) Record {
	return Record{
		ID: id, Name: "Ada Lovelace", Email: email, StudentID: "900123456",
		Slot: slot, Campus: availability.CampusSLO, Exam: "2", Status: StatusBooked,
	}
}

func TestRescheduleSingleKeepsGrade(t *testing.T) {
	r := booked("1", "ada@my.cuesta.edu", monday900)
	r.Grade, r.GradedBy, r.DSPS = "8", "Prof. X", true
	f := newFixture(friday, r)

	res, err := f.engine.Reschedule(context.Background(), RescheduleRequest{Target: "1", Slot: weds1000})
	require.NoError(t, err)
	require.Len(t, res.Booked, 1)
	moved := res.Booked[0]
	assert.Equal(t, weds1000, moved.Slot)
	assert.Equal(t, "8", moved.Grade)
	assert.Equal(t, "Prof. X", moved.GradedBy)
	assert.Empty(t, moved.GroupID)
	assert.False(t, moved.DSPS)
	assert.NotEqual(t, "1", moved.ID)

	active := f.active(t)
	require.Len(t, active, 1)
	assert.Equal(t, weds1000, active[0].Slot)
}

func TestRescheduleDoubleBlockKeepsGroup(t *testing.T) {
	a := booked("1", "ada@my.cuesta.edu", monday900)
	b := booked("2", "ada@my.cuesta.edu", monday915)
	a.DSPS, b.DSPS = true, true
	a.GroupID, b.GroupID = "g1", "g1"
	f := newFixture(friday, a, b)

	res, err := f.engine.Reschedule(context.Background(), RescheduleRequest{Target: "g1", Slot: tuesday900})
	require.NoError(t, err)
	require.Len(t, res.Booked, 2)
	assert.Len(t, res.Canceled, 2)
	for _, r := range res.Booked {
		assert.Equal(t, "g1", r.GroupID)
		assert.True(t, r.DSPS)
	}
	assert.Equal(t, tuesday900, res.Booked[0].Slot)
	assert.Equal(t, "Tuesday 01/07/25 9:15–9:30 AM", res.Booked[1].Slot)
}

func TestRescheduleIgnoresSameDayLockout(t *testing.T) {
	mondayMorning := time.Date(2025, time.January, 6, 8, 0, 0, 0, pacific)
	f := newFixture(mondayMorning, booked("1", "ada@my.cuesta.edu", monday300))

	_, err := f.engine.Reschedule(context.Background(), RescheduleRequest{Target: "1", Slot: tuesday900})
	require.NoError(t, err)
}

func TestRescheduleRejectsTakenSlot(t *testing.T) {
	f := newFixture(friday,
		booked("1", "ada@my.cuesta.edu", monday900),
		booked("2", "grace@my.cuesta.edu", monday915),
	)
	ctx := context.Background()

	_, err := f.engine.Reschedule(ctx, RescheduleRequest{Target: "1", Slot: monday915})
	assert.ErrorIs(t, err, ErrSlotTaken)

	_, err = f.engine.Reschedule(ctx, RescheduleRequest{Target: "missing", Slot: monday915})
	assert.ErrorIs(t, err, ErrNotFound)

	// Moving onto its own slot is allowed.
	_, err = f.engine.Reschedule(ctx, RescheduleRequest{Target: "1", Slot: monday900})
	require.NoError(t, err)
}

func TestGrade(t *testing.T) {
	f := newFixture(friday, booked("1", "ada@my.cuesta.edu", monday900))
	ctx := context.Background()

	_, err := f.engine.Grade(ctx, GradeRequest{RecordID: "1", Grade: "A+"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.engine.Grade(ctx, GradeRequest{Grade: "9"})
	assert.ErrorIs(t, err, ErrValidation)

	r, err := f.engine.Grade(ctx, GradeRequest{Email: "ada@my.cuesta.edu", Slot: monday900, Grade: "9.5", GradedBy: "Prof. X"})
	require.NoError(t, err)
	assert.Equal(t, "9.5", r.Grade)
	assert.Equal(t, "9.5", f.active(t)[0].Grade)
}

func TestBackfillLegacyGroups(t *testing.T) {
	legacy := func(id, slot string) Record {
		r := booked(id, "ada@my.cuesta.edu", slot)
		r.DSPS = true
		r.Status = ""
		return r
	}
	lone := legacy("3", tuesday900)
	f := newFixture(friday, legacy("1", monday900), legacy("2", monday915), lone)

	view, err := f.engine.AdminView(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, view.Bookings, 3)

	byID := map[string]Record{}
	for _, r := range view.Bookings {
		byID[r.ID] = r
	}
	assert.NotEmpty(t, byID["1"].GroupID)
	assert.Equal(t, byID["1"].GroupID, byID["2"].GroupID)
	assert.Equal(t, StatusBooked, byID["1"].Status)
	assert.Empty(t, byID["3"].GroupID, "a lone row is not a pair")

	n, err := f.engine.BackfillLegacyGroups(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "backfill is idempotent")
}

func TestAdminViewIsolatesBadRows(t *testing.T) {
	late := booked("late", "ada@my.cuesta.edu", "Friday 01/03/25 2:00–2:15 PM")
	early := booked("early", "grace@my.cuesta.edu", "Friday 01/03/25 9:15–9:30 AM")
	bad := booked("bad", "alan@my.cuesta.edu", "whenever works")
	other := booked("ncc", "kat@my.cuesta.edu", "Friday 01/03/25 8:15–8:30 AM")
	other.Campus = availability.CampusNCC
	f := newFixture(friday, late, early, bad, other)

	view, err := f.engine.AdminView(context.Background(), "slo at lab")
	require.NoError(t, err)
	assert.Equal(t, availability.CampusSLO, view.Campus)
	assert.Len(t, view.Bookings, 3)
	require.Len(t, view.Today, 2)
	assert.Equal(t, "early", view.Today[0].ID)
	assert.Equal(t, "late", view.Today[1].ID)
	require.Len(t, view.RowErrors, 1)
	assert.Equal(t, "bad", view.RowErrors[0].RecordID)

	_, err = f.engine.AdminView(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrValidation)
}
