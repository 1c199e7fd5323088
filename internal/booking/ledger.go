package booking

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"atlab/internal/slotlabel"
)

// Ledger is a loaded snapshot of the booking table plus the mutations that
// write it back. Rows are never removed; cancellation is a status change.
// A Ledger lives for one request: Load, decide, mutate.
type Ledger struct {
	store   Store
	clock   func() time.Time
	records []Record
}

// NewLedger binds a ledger to store. clock stamps created_at/updated_at.
func NewLedger(store Store, clock func() time.Time) *Ledger {
	if clock == nil {
		clock = time.Now
	}
	return &Ledger{store: store, clock: clock}
}

// Load re-reads the latest snapshot and applies the schema migration, persisting it if needed.
func (l *Ledger) Load(ctx context.Context) error {
	records, err := l.store.LoadAll(ctx)
	if err != nil {
		return storeErr("load", err)
	}
	if migrate(records) {
		if err := l.store.OverwriteAll(ctx, records); err != nil {
			return storeErr("migrate", err)
		}
	}
	l.records = records
	return nil
}

// Records returns a copy of every row, canceled ones included.
func (l *Ledger) Records() []Record {
	return cloneRecords(l.records)
}

// ActiveBookings returns rows still holding their slot.
func (l *Ledger) ActiveBookings() []Record {
	var out []Record
	for _, r := range l.records {
		if r.Active() {
			out = append(out, r)
		}
	}
	return out
}

// ActiveSlotsOccupied returns the labels held by active rows at campus.
// An empty campus returns labels across every campus.
func (l *Ledger) ActiveSlotsOccupied(campus string) map[string]struct{} {
	occupied := make(map[string]struct{})
	for _, r := range l.records {
		if !r.Active() {
			continue
		}
		if campus != "" && !strings.EqualFold(r.Campus, campus) {
			continue
		}
		occupied[r.Slot] = struct{}{}
	}
	return occupied
}

// BookingsFor returns the active rows of one student for one exam.
func (l *Ledger) BookingsFor(email, category string) []Record {
	var out []Record
	for _, r := range l.records {
		if r.Active() && r.Student(email) && strings.TrimSpace(r.Exam) == strings.TrimSpace(category) {
			out = append(out, r)
		}
	}
	return out
}

// Group returns the active rows sharing groupID.
func (l *Ledger) Group(groupID string) []Record {
	if groupID == "" {
		return nil
	}
	var out []Record
	for _, r := range l.records {
		if r.Active() && r.GroupID == groupID {
			out = append(out, r)
		}
	}
	return out
}

// Find returns the row with id.
func (l *Ledger) Find(id string) (Record, bool) {
	for _, r := range l.records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// Append adds new booked rows after checking their slots are still free.
func (l *Ledger) Append(ctx context.Context, recs ...Record) ([]Record, error) {
	return l.Replace(ctx, nil, recs)
}

// Replace cancels the rows in cancelIDs and appends add in one write.
// Each added slot is re-checked against the snapshot first, ignoring rows
// being canceled in the same call.
func (l *Ledger) Replace(ctx context.Context, cancelIDs []string, add []Record) ([]Record, error) {
	now := l.clock()
	canceling := make(map[string]bool, len(cancelIDs))
	for _, id := range cancelIDs {
		canceling[id] = true
	}

	for _, n := range add {
		for _, r := range l.records {
			if r.Active() && !canceling[r.ID] && r.Slot == n.Slot && strings.EqualFold(r.Campus, n.Campus) {
				if r.Student(n.Email) && r.Exam == n.Exam {
					return nil, ErrAlreadyBooked
				}
				return nil, ErrSlotTaken
			}
		}
	}

	next := cloneRecords(l.records)
	for i := range next {
		if canceling[next[i].ID] && next[i].Active() {
			next[i].Status = StatusCanceled
			next[i].UpdatedAt = now
		}
	}

	created := make([]Record, 0, len(add))
	for _, n := range add {
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		n.Status = StatusBooked
		n.CreatedAt = now
		n.UpdatedAt = now
		created = append(created, n)
	}

	var err error
	if len(cancelIDs) == 0 && len(created) == 1 {
		err = l.store.AppendOne(ctx, created[0])
	} else if len(cancelIDs) > 0 || len(created) > 0 {
		err = l.store.OverwriteAll(ctx, append(next, created...))
	}
	if err != nil {
		return nil, storeErr("write", err)
	}
	l.records = append(next, created...)
	return created, nil
}

// MarkCanceled cancels the active rows of a group when id is a group id,
// otherwise the single row with that id.
func (l *Ledger) MarkCanceled(ctx context.Context, id string) ([]Record, error) {
	ids := l.cancelTargets(id)
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	if _, err := l.Replace(ctx, ids, nil); err != nil {
		return nil, err
	}
	var out []Record
	for _, want := range ids {
		if r, ok := l.Find(want); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *Ledger) cancelTargets(id string) []string {
	if id == "" {
		return nil
	}
	var ids []string
	for _, r := range l.Group(id) {
		ids = append(ids, r.ID)
	}
	if len(ids) > 0 {
		return ids
	}
	if r, ok := l.Find(id); ok && r.Active() {
		// A member of a group takes the whole group with it.
		if g := l.Group(r.GroupID); len(g) > 0 {
			for _, m := range g {
				ids = append(ids, m.ID)
			}
			return ids
		}
		return []string{r.ID}
	}
	return nil
}

// GradeMatch selects the row to grade: by id, or by student email and slot.
type GradeMatch struct {
	RecordID string
	Email    string
	Slot     string
}

// UpdateGrade sets grade and grader on the first matching active row.
func (l *Ledger) UpdateGrade(ctx context.Context, match GradeMatch, grade, grader string) (Record, error) {
	if canonical, err := slotlabel.Canonical(match.Slot); err == nil {
		match.Slot = canonical
	}
	idx := -1
	for i, r := range l.records {
		if !r.Active() {
			continue
		}
		if match.RecordID != "" {
			if r.ID == match.RecordID {
				idx = i
				break
			}
			continue
		}
		if r.Student(match.Email) && r.Slot == match.Slot {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Record{}, ErrNotFound
	}

	next := cloneRecords(l.records)
	next[idx].Grade = grade
	next[idx].GradedBy = grader
	next[idx].UpdatedAt = l.clock()
	if err := l.overwrite(ctx, next); err != nil {
		return Record{}, err
	}
	return next[idx], nil
}

// overwrite persists a modified copy of the snapshot.
func (l *Ledger) overwrite(ctx context.Context, next []Record) error {
	if err := l.store.OverwriteAll(ctx, next); err != nil {
		return storeErr("write", err)
	}
	l.records = next
	return nil
}
