package booking

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"atlab/internal/availability"
	"atlab/internal/slotlabel"
)

// RescheduleRequest moves a booking (a row id, or a group id for a double
// block) to a new slot. For a double block Slot is the first of the pair.
type RescheduleRequest struct {
	Target string `json:"target"`
	Slot   string `json:"slot"`
}

// Reschedule is the staff version of a same-week rebooking. The same-day
// lockout does not apply. A double block keeps its group id; a single row
// keeps its grade and loses any group id.
func (e *Engine) Reschedule(ctx context.Context, req RescheduleRequest) (Result, error) {
	target, slot := strings.TrimSpace(req.Target), strings.TrimSpace(req.Slot)
	if target == "" || slot == "" {
		return Result{}, invalid("target and slot are required")
	}

	var res Result
	err := e.locker.WithLock(ctx, tableLock, func(ctx context.Context) error {
		l := e.ledger()
		if err := l.Load(ctx); err != nil {
			return err
		}
		ids := l.cancelTargets(target)
		if len(ids) == 0 {
			return ErrNotFound
		}
		rows := make([]Record, 0, len(ids))
		for _, id := range ids {
			r, _ := l.Find(id)
			rows = append(rows, r)
		}
		first := rows[0]

		campus, ok := e.schedule.Campus(first.Campus)
		if !ok {
			return invalid("booking has unknown lab location " + first.Campus)
		}
		double := first.GroupID != "" && len(rows) > 1
		targets, err := e.staffTargets(campus, slot, double)
		if err != nil {
			return err
		}

		own := make(map[string]bool, len(ids))
		for _, id := range ids {
			own[id] = true
		}
		for _, r := range l.ActiveBookings() {
			if own[r.ID] || !strings.EqualFold(r.Campus, campus.Name) {
				continue
			}
			for _, s := range targets {
				if r.Slot == s {
					if double {
						return ErrNoConsecutiveSlot
					}
					return ErrSlotTaken
				}
			}
		}

		add := make([]Record, 0, len(targets))
		for _, s := range targets {
			n := Record{
				Name:      first.Name,
				Email:     first.Email,
				StudentID: first.StudentID,
				DSPS:      double || first.DSPS,
				Slot:      s,
				Campus:    campus.Name,
				Exam:      first.Exam,
			}
			if double {
				n.GroupID = first.GroupID
			} else {
				n.DSPS = false
				n.Grade = first.Grade
				n.GradedBy = first.GradedBy
			}
			add = append(add, n)
		}

		booked, err := l.Replace(ctx, ids, add)
		if err != nil {
			return err
		}
		res.Booked = booked
		res.Rescheduled = true
		for _, id := range ids {
			if r, ok := l.Find(id); ok {
				res.Canceled = append(res.Canceled, r)
			}
		}
		res.Slot = describe(targets)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// staffTargets resolves a slot within the campus horizon without the
// must-be-in-the-future rule students get.
func (e *Engine) staffTargets(campus availability.Campus, label string, double bool) ([]string, error) {
	start, _, err := slotlabel.ParseIn(label, e.schedule.Location)
	if err != nil {
		return nil, err
	}
	days, err := e.schedule.Days(campus, e.now())
	if err != nil {
		return nil, err
	}
	day, ok := availability.Find(days, slotlabel.DayLabel(start))
	if !ok {
		return nil, invalid("no availability at " + campus.Name + " on " + slotlabel.DayLabel(start))
	}
	idx := indexOf(day.Slots, label, e.schedule.Location)
	if idx < 0 {
		return nil, invalid("slot " + label + " is not offered at " + campus.Name)
	}
	if !double {
		return []string{day.Slots[idx]}, nil
	}
	for _, p := range availability.Pairs(day.Slots) {
		if p[0] == day.Slots[idx] {
			return []string{p[0], p[1]}, nil
		}
	}
	return nil, ErrNoConsecutiveSlot
}

// GradeRequest records a grade against one active booking.
type GradeRequest struct {
	RecordID string `json:"record_id"`
	Email    string `json:"email"`
	Slot     string `json:"slot"`
	Grade    string `json:"grade"`
	GradedBy string `json:"graded_by"`
}

// Grade writes grade and grader onto the first matching active row.
func (e *Engine) Grade(ctx context.Context, req GradeRequest) (Record, error) {
	grade := strings.TrimSpace(req.Grade)
	if grade != "" {
		if _, err := strconv.ParseFloat(grade, 64); err != nil {
			return Record{}, invalid("grade must be numeric")
		}
	}
	if req.RecordID == "" && (req.Email == "" || req.Slot == "") {
		return Record{}, invalid("record id or email and slot are required")
	}

	var out Record
	err := e.locker.WithLock(ctx, tableLock, func(ctx context.Context) error {
		l := e.ledger()
		if err := l.Load(ctx); err != nil {
			return err
		}
		r, err := l.UpdateGrade(ctx, GradeMatch{
			RecordID: strings.TrimSpace(req.RecordID),
			Email:    strings.TrimSpace(req.Email),
			Slot:     strings.TrimSpace(req.Slot),
		}, grade, strings.TrimSpace(req.GradedBy))
		out = r
		return err
	})
	return out, err
}

// Cancel cancels a row, or every row of a group, by id.
func (e *Engine) Cancel(ctx context.Context, id string) ([]Record, error) {
	var out []Record
	err := e.locker.WithLock(ctx, tableLock, func(ctx context.Context) error {
		l := e.ledger()
		if err := l.Load(ctx); err != nil {
			return err
		}
		canceled, err := l.MarkCanceled(ctx, strings.TrimSpace(id))
		out = canceled
		return err
	})
	return out, err
}

// BackfillLegacyGroups gives older accommodation rows a shared group id.
// Rows flagged DSPS without a group id are grouped by student, exam, campus
// and calendar date; every such set of two or more rows gets a fresh id.
// It returns the number of groups assigned.
func (e *Engine) BackfillLegacyGroups(ctx context.Context) (int, error) {
	var assigned int
	err := e.locker.WithLock(ctx, tableLock, func(ctx context.Context) error {
		l := e.ledger()
		if err := l.Load(ctx); err != nil {
			return err
		}

		type key struct{ email, exam, campus, date string }
		var order []key
		members := make(map[key][]int)
		for i, r := range l.records {
			if !r.DSPS || r.GroupID != "" {
				continue
			}
			start, _, err := slotlabel.ParseIn(r.Slot, e.schedule.Location)
			if err != nil {
				continue
			}
			k := key{
				email:  strings.ToLower(strings.TrimSpace(r.Email)),
				exam:   strings.TrimSpace(r.Exam),
				campus: strings.ToLower(strings.TrimSpace(r.Campus)),
				date:   start.Format("2006-01-02"),
			}
			if _, ok := members[k]; !ok {
				order = append(order, k)
			}
			members[k] = append(members[k], i)
		}

		next := cloneRecords(l.records)
		now := e.clock()
		for _, k := range order {
			idx := members[k]
			if len(idx) < 2 {
				continue
			}
			gid := uuid.NewString()
			for _, i := range idx {
				next[i].GroupID = gid
				if strings.TrimSpace(string(next[i].Status)) == "" {
					next[i].Status = StatusBooked
				}
				next[i].UpdatedAt = now
			}
			assigned++
		}
		if assigned == 0 {
			return nil
		}
		return l.overwrite(ctx, next)
	})
	return assigned, err
}

// View is the admin listing for one campus.
type View struct {
	Campus    string     `json:"lab_location"`
	Bookings  []Record   `json:"bookings"`
	Today     []Record   `json:"today"`
	RowErrors []RowError `json:"row_errors,omitempty"`
}

// AdminView backfills legacy groups, then lists active bookings at campus
// (every campus when empty) and today's appointments in time order. Rows
// with unparseable slots are listed but reported in RowErrors instead of
// failing the view.
func (e *Engine) AdminView(ctx context.Context, campus string) (View, error) {
	if _, err := e.BackfillLegacyGroups(ctx); err != nil {
		return View{}, err
	}
	if campus != "" {
		c, ok := e.schedule.Campus(campus)
		if !ok {
			return View{}, invalid("unknown lab location " + campus)
		}
		campus = c.Name
	}

	l := e.ledger()
	if err := l.Load(ctx); err != nil {
		return View{}, err
	}
	loc := e.schedule.Location
	today := dateOf(e.now())

	view := View{Campus: campus, Bookings: []Record{}, Today: []Record{}}
	starts := make(map[string]time.Time)
	for _, r := range l.ActiveBookings() {
		if campus != "" && !strings.EqualFold(r.Campus, campus) {
			continue
		}
		view.Bookings = append(view.Bookings, r)
		start, _, err := slotlabel.ParseIn(r.Slot, loc)
		if err != nil {
			view.RowErrors = append(view.RowErrors, RowError{RecordID: r.ID, Slot: r.Slot, Err: err.Error()})
			continue
		}
		if dateOf(start).Equal(today) {
			view.Today = append(view.Today, r)
			starts[r.ID] = start
		}
	}
	sort.SliceStable(view.Today, func(i, j int) bool {
		return starts[view.Today[i].ID].Before(starts[view.Today[j].ID])
	})
	return view, nil
}
