package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededLedger(t *testing.T, records ...Record) (*Ledger, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(records...)
	l := NewLedger(store, func() time.Time { return friday })
	require.NoError(t, l.Load(context.Background()))
	return l, store
}

func TestLedgerLoadAssignsIDs(t *testing.T) {
	l, store := seededLedger(t,
		Record{Email: "a@my.cuesta.edu", Slot: monday900, Campus: "SLO AT Lab", Exam: "2"},
		Record{ID: "keep", Email: "b@my.cuesta.edu", Slot: monday915, Campus: "SLO AT Lab", Exam: "2"},
	)

	recs := l.Records()
	require.Len(t, recs, 2)
	assert.NotEmpty(t, recs[0].ID)
	assert.Equal(t, "keep", recs[1].ID)

	persisted, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recs[0].ID, persisted[0].ID, "migration is written back")
}

func TestLedgerQueries(t *testing.T) {
	l, _ := seededLedger(t,
		Record{ID: "1", Email: "Ada@My.Cuesta.edu", Slot: monday900, Campus: "SLO AT Lab", Exam: "2", Status: StatusBooked},
		Record{ID: "2", Email: "ada@my.cuesta.edu", Slot: monday915, Campus: "SLO AT Lab", Exam: "2", Status: StatusCanceled},
		Record{ID: "3", Email: "ada@my.cuesta.edu", Slot: monday930, Campus: "NCC AT Lab", Exam: "3"},
		Record{ID: "4", Email: "grace@my.cuesta.edu", Slot: monday300, Campus: "SLO AT Lab", Exam: "2", GroupID: "g"},
		Record{ID: "5", Email: "grace@my.cuesta.edu", Slot: "Monday 01/06/25 3:15–3:30 PM", Campus: "SLO AT Lab", Exam: "2", GroupID: "g"},
	)

	assert.Len(t, l.ActiveBookings(), 4)

	slo := l.ActiveSlotsOccupied("slo at lab")
	assert.Len(t, slo, 3)
	assert.Contains(t, slo, monday900)
	assert.NotContains(t, slo, monday915)
	assert.Len(t, l.ActiveSlotsOccupied(""), 4)

	mine := l.BookingsFor("ADA@my.cuesta.edu", "2")
	require.Len(t, mine, 1)
	assert.Equal(t, "1", mine[0].ID)

	assert.Len(t, l.Group("g"), 2)
	assert.Nil(t, l.Group(""))

	_, ok := l.Find("nope")
	assert.False(t, ok)
}

func TestLedgerAppendRechecksOccupancy(t *testing.T) {
	l, store := seededLedger(t,
		Record{ID: "1", Email: "grace@my.cuesta.edu", Slot: monday900, Campus: "SLO AT Lab", Exam: "2"},
	)
	ctx := context.Background()

	_, err := l.Append(ctx, Record{Email: "ada@my.cuesta.edu", Slot: monday900, Campus: "SLO AT Lab", Exam: "2"})
	assert.ErrorIs(t, err, ErrSlotTaken)

	_, err = l.Append(ctx, Record{Email: "grace@my.cuesta.edu", Slot: monday900, Campus: "SLO AT Lab", Exam: "2"})
	assert.ErrorIs(t, err, ErrAlreadyBooked)

	created, err := l.Append(ctx, Record{Email: "ada@my.cuesta.edu", Slot: monday915, Campus: "SLO AT Lab", Exam: "2"})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, StatusBooked, created[0].Status)
	assert.Equal(t, friday, created[0].CreatedAt)

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestLedgerReplaceFreesCanceledSlots(t *testing.T) {
	l, _ := seededLedger(t,
		Record{ID: "1", Email: "ada@my.cuesta.edu", Slot: monday900, Campus: "SLO AT Lab", Exam: "2"},
	)

	created, err := l.Replace(context.Background(), []string{"1"},
		[]Record{{Email: "ada@my.cuesta.edu", Slot: monday900, Campus: "SLO AT Lab", Exam: "2"}})
	require.NoError(t, err)
	require.Len(t, created, 1)

	old, _ := l.Find("1")
	assert.Equal(t, StatusCanceled, old.Status)
	assert.Equal(t, friday, old.UpdatedAt)
	assert.Len(t, l.ActiveBookings(), 1)
}

func TestLedgerMarkCanceledTakesWholeGroup(t *testing.T) {
	l, _ := seededLedger(t,
		Record{ID: "1", Email: "ada@my.cuesta.edu", Slot: monday900, Campus: "SLO AT Lab", Exam: "2", GroupID: "g"},
		Record{ID: "2", Email: "ada@my.cuesta.edu", Slot: monday915, Campus: "SLO AT Lab", Exam: "2", GroupID: "g"},
		Record{ID: "3", Email: "grace@my.cuesta.edu", Slot: monday930, Campus: "SLO AT Lab", Exam: "2"},
	)
	ctx := context.Background()

	canceled, err := l.MarkCanceled(ctx, "2")
	require.NoError(t, err)
	assert.Len(t, canceled, 2)
	for _, r := range canceled {
		assert.Equal(t, StatusCanceled, r.Status)
	}

	_, err = l.MarkCanceled(ctx, "g")
	assert.ErrorIs(t, err, ErrNotFound)

	canceled, err = l.MarkCanceled(ctx, "3")
	require.NoError(t, err)
	assert.Len(t, canceled, 1)
	assert.Empty(t, l.ActiveBookings())
}

func TestLedgerUpdateGrade(t *testing.T) {
	l, store := seededLedger(t,
		Record{ID: "1", Email: "ada@my.cuesta.edu", Slot: monday900, Campus: "SLO AT Lab", Exam: "2"},
	)
	ctx := context.Background()

	r, err := l.UpdateGrade(ctx, GradeMatch{Email: "ADA@my.cuesta.edu", Slot: monday900}, "9.5", "Prof. X")
	require.NoError(t, err)
	assert.Equal(t, "9.5", r.Grade)
	assert.Equal(t, "Prof. X", r.GradedBy)

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "9.5", all[0].Grade)

	r, err = l.UpdateGrade(ctx, GradeMatch{Email: "ada@my.cuesta.edu", Slot: "Monday 01/06/25 9:00-9:15 AM"}, "10", "Prof. Y")
	require.NoError(t, err)
	assert.Equal(t, "10", r.Grade)

	_, err = l.UpdateGrade(ctx, GradeMatch{RecordID: "missing"}, "1", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerLoadCanonicalisesSlotLabels(t *testing.T) {
	l, store := seededLedger(t,
		Record{ID: "1", Email: "grace@my.cuesta.edu", Slot: "Monday 01/06/2025 9:00 AM to 9:15 AM", Campus: "SLO AT Lab", Exam: "3"},
		Record{ID: "2", Email: "alan@my.cuesta.edu", Slot: "whenever works", Campus: "SLO AT Lab", Exam: "3"},
	)

	assert.Contains(t, l.ActiveSlotsOccupied("SLO AT Lab"), monday900)

	persisted, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, monday900, persisted[0].Slot)
	assert.Equal(t, "whenever works", persisted[1].Slot)

	_, err = l.Append(context.Background(), Record{Email: "ada@my.cuesta.edu", Slot: monday900, Campus: "SLO AT Lab", Exam: "2"})
	assert.ErrorIs(t, err, ErrSlotTaken)
}
