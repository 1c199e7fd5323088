package booking

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"atlab/internal/availability"
	"atlab/internal/slotlabel"
)

// Confirmation is what a student is told after a committed booking.
type Confirmation struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Slot   string `json:"slot"`
	Campus string `json:"lab_location"`
	Exam   string `json:"exam_number"`
	DSPS   bool   `json:"dsps"`
}

// Notifier delivers booking confirmations. Its failures never fail a booking.
type Notifier interface {
	Notify(ctx context.Context, c Confirmation) error
}

// Locker runs fn as the only writer of key. The booking table has no
// row-level isolation, so every read-decide-write sequence goes through it.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

const tableLock = "atlab:bookings"

// DefaultExams are the oral lab exams students sign up for.
var DefaultExams = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10"}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Schedule  *availability.Schedule
	Locker    Locker
	Notifier  Notifier
	Validator *Validator
	Exams     []string
	Clock     func() time.Time
}

// Engine decides whether a booking request is legal and applies it to the ledger.
type Engine struct {
	store     Store
	schedule  *availability.Schedule
	locker    Locker
	notifier  Notifier
	validator Validator
	exams     []string
	clock     func() time.Time
}

// NewEngine creates an engine over store.
func NewEngine(store Store, opts Options) *Engine {
	e := &Engine{
		store:     store,
		schedule:  opts.Schedule,
		locker:    opts.Locker,
		notifier:  opts.Notifier,
		validator: DefaultValidator(),
		exams:     opts.Exams,
		clock:     opts.Clock,
	}
	if e.schedule == nil {
		e.schedule = availability.NewSchedule(nil, 0, 0, nil)
	}
	if e.locker == nil {
		e.locker = &processLock{}
	}
	if opts.Validator != nil {
		e.validator = *opts.Validator
	}
	if len(e.exams) == 0 {
		e.exams = DefaultExams
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	return e
}

type processLock struct{ mu sync.Mutex }

func (p *processLock) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fn(ctx)
}

// Schedule exposes the campus schedule the engine books against.
func (e *Engine) Schedule() *availability.Schedule { return e.schedule }

// Exams lists accepted exam numbers.
func (e *Engine) Exams() []string { return append([]string(nil), e.exams...) }

func (e *Engine) now() time.Time { return e.clock().In(e.schedule.Location) }

func (e *Engine) ledger() *Ledger { return NewLedger(e.store, e.clock) }

// Request is a student's booking intent for one slot, or the first slot of a
// double block when DSPS is set.
type Request struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	StudentID string `json:"student_id"`
	DSPS      bool   `json:"dsps"`
	Campus    string `json:"lab_location"`
	Exam      string `json:"exam_number"`
	Slot      string `json:"slot"`
}

// Result describes what a committed request changed.
type Result struct {
	Booked      []Record `json:"booked"`
	Canceled    []Record `json:"canceled,omitempty"`
	Rescheduled bool     `json:"rescheduled"`
	Slot        string   `json:"slot"`
	Warning     string   `json:"warning,omitempty"`
}

// Book applies a student request. Within the target ISO week a second request
// for the same exam replaces the earlier booking, unless that booking is today
// and the new one is not. Bookings in other weeks are left alone.
func (e *Engine) Book(ctx context.Context, req Request) (Result, error) {
	req = req.trimmed()
	if err := e.validator.Validate(req.Name, req.Email, req.StudentID); err != nil {
		return Result{}, err
	}
	if !e.examAllowed(req.Exam) {
		return Result{}, invalid("unknown exam number " + req.Exam)
	}
	campus, ok := e.schedule.Campus(req.Campus)
	if !ok {
		return Result{}, invalid("unknown lab location " + req.Campus)
	}
	req.Campus = campus.Name

	now := e.now()
	targets, err := e.targets(campus, req.Slot, req.DSPS, now)
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = e.locker.WithLock(ctx, tableLock, func(ctx context.Context) error {
		l := e.ledger()
		if err := l.Load(ctx); err != nil {
			return err
		}
		if err := checkOccupancy(l, req, targets); err != nil {
			return err
		}

		sameWeek, err := e.sameWeek(l, req, targets[0])
		if err != nil {
			return err
		}
		cancelIDs := cancellationSet(l, sameWeek)

		groupID := ""
		if len(targets) > 1 {
			groupID = uuid.NewString()
		}
		add := make([]Record, 0, len(targets))
		for _, slot := range targets {
			add = append(add, Record{
				Name:      req.Name,
				Email:     req.Email,
				StudentID: req.StudentID,
				DSPS:      req.DSPS,
				Slot:      slot,
				Campus:    campus.Name,
				Exam:      req.Exam,
				GroupID:   groupID,
			})
		}

		booked, err := l.Replace(ctx, cancelIDs, add)
		if err != nil {
			return err
		}
		res.Booked = booked
		res.Rescheduled = len(cancelIDs) > 0
		for _, id := range cancelIDs {
			if r, ok := l.Find(id); ok {
				res.Canceled = append(res.Canceled, r)
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	res.Slot = describe(targets)
	if e.notifier != nil {
		c := Confirmation{Email: req.Email, Name: req.Name, Slot: res.Slot, Campus: campus.Name, Exam: req.Exam, DSPS: req.DSPS}
		if err := e.notifier.Notify(ctx, c); err != nil {
			log.Printf("confirmation for %s not sent: %v", req.Email, err)
			res.Warning = "booking saved, but the confirmation email could not be sent"
		}
	}
	return res, nil
}

func (r Request) trimmed() Request {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.Campus = strings.TrimSpace(r.Campus)
	r.Exam = strings.TrimSpace(r.Exam)
	r.Slot = strings.TrimSpace(r.Slot)
	return r
}

func (e *Engine) examAllowed(exam string) bool {
	for _, x := range e.exams {
		if x == exam {
			return true
		}
	}
	return false
}

// targets resolves the requested label to the generated slot(s) it stands for.
// A double block is the requested slot plus the next back-to-back slot of the same day.
func (e *Engine) targets(campus availability.Campus, label string, dsps bool, now time.Time) ([]string, error) {
	start, _, err := slotlabel.ParseIn(label, e.schedule.Location)
	if err != nil {
		return nil, err
	}
	days, err := e.schedule.Days(campus, now)
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

	if !dsps {
		if !start.After(now) {
			return nil, invalid("slot " + label + " has already started")
		}
		return []string{day.Slots[idx]}, nil
	}

	for _, pair := range availability.Pairs(day.Slots) {
		if pair[0] != day.Slots[idx] {
			continue
		}
		second, _, err := slotlabel.ParseIn(pair[1], e.schedule.Location)
		if err != nil || !start.After(now) || !second.After(now) {
			break
		}
		return []string{pair[0], pair[1]}, nil
	}
	return nil, ErrNoConsecutiveSlot
}

// indexOf finds label in slots, tolerating punctuation variants of the same interval.
func indexOf(slots []string, label string, loc *time.Location) int {
	for i, s := range slots {
		if s == label {
			return i
		}
	}
	start, end, err := slotlabel.ParseIn(label, loc)
	if err != nil {
		return -1
	}
	for i, s := range slots {
		a, b, err := slotlabel.ParseIn(s, loc)
		if err == nil && a.Equal(start) && b.Equal(end) {
			return i
		}
	}
	return -1
}

func checkOccupancy(l *Ledger, req Request, targets []string) error {
	for _, r := range l.ActiveBookings() {
		if !strings.EqualFold(r.Campus, req.Campus) {
			continue
		}
		for _, slot := range targets {
			if r.Slot != slot {
				continue
			}
			if r.Student(req.Email) && r.Exam == req.Exam {
				return ErrAlreadyBooked
			}
			if len(targets) > 1 {
				return ErrNoConsecutiveSlot
			}
			return ErrSlotTaken
		}
	}
	return nil
}

// sameWeek returns the student's active rows for the exam in the target's ISO
// week, enforcing the same-day lockout.
func (e *Engine) sameWeek(l *Ledger, req Request, target string) ([]Record, error) {
	loc := e.schedule.Location
	targetStart, _, err := slotlabel.ParseIn(target, loc)
	if err != nil {
		return nil, err
	}
	ty, tw := targetStart.ISOWeek()
	today := dateOf(e.now())
	targetDay := dateOf(targetStart)

	var rows []Record
	for _, r := range l.BookingsFor(req.Email, req.Exam) {
		start, _, err := slotlabel.ParseIn(r.Slot, loc)
		if err != nil {
			log.Printf("booking %s: %v", r.ID, err)
			continue
		}
		if y, w := start.ISOWeek(); y == ty && w == tw {
			rows = append(rows, r)
		}
	}

	if !targetDay.Equal(today) {
		for _, r := range rows {
			start, _, _ := slotlabel.ParseIn(r.Slot, loc)
			if dateOf(start).Equal(today) {
				return nil, ErrSameDayLock
			}
		}
	}
	return rows, nil
}

// cancellationSet expands rows to whole groups when any row carries a group
// id, so an accommodation pair is never split.
func cancellationSet(l *Ledger, rows []Record) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, r := range rows {
		if r.GroupID != "" {
			for _, m := range l.Group(r.GroupID) {
				add(m.ID)
			}
			continue
		}
		add(r.ID)
	}
	return ids
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func describe(slots []string) string {
	if len(slots) == 1 {
		return slots[0]
	}
	if merged, err := slotlabel.Merge(slots...); err == nil {
		return merged
	}
	return strings.Join(slots, " and ")
}

// Option is one choice offered to a student: a slot, or a double block.
type Option struct {
	Label string   `json:"label"`
	Slots []string `json:"slots"`
}

// Days lists the campus days in the booking horizon.
func (e *Engine) Days(campusName string) ([]availability.Day, error) {
	campus, ok := e.schedule.Campus(campusName)
	if !ok {
		return nil, invalid("unknown lab location " + campusName)
	}
	return e.schedule.Days(campus, e.now())
}

// FreeSlots returns the future slots (or double blocks) still free on dayLabel.
func (e *Engine) FreeSlots(ctx context.Context, campusName, dayLabel string, dsps bool) ([]Option, error) {
	campus, ok := e.schedule.Campus(campusName)
	if !ok {
		return nil, invalid("unknown lab location " + campusName)
	}
	now := e.now()
	days, err := e.schedule.Days(campus, now)
	if err != nil {
		return nil, err
	}
	day, ok := availability.Find(days, dayLabel)
	if !ok {
		return []Option{}, nil
	}

	l := e.ledger()
	if err := l.Load(ctx); err != nil {
		return nil, err
	}
	occupied := l.ActiveSlotsOccupied(campus.Name)
	future := func(label string) bool {
		start, _, err := slotlabel.ParseIn(label, e.schedule.Location)
		return err == nil && start.After(now)
	}

	options := []Option{}
	if dsps {
		for _, p := range availability.Pairs(day.Slots) {
			if len(availability.Free(p[:], occupied)) == 2 && future(p[0]) && future(p[1]) {
				options = append(options, Option{Label: describe(p[:]), Slots: []string{p[0], p[1]}})
			}
		}
		return options, nil
	}
	for _, s := range availability.Free(day.Slots, occupied) {
		if future(s) {
			options = append(options, Option{Label: s, Slots: []string{s}})
		}
	}
	return options, nil
}

// Signup is one line of the public roster.
type Signup struct {
	Student string `json:"student"`
	Slot    string `json:"slot"`
	Campus  string `json:"lab_location"`
}

// DaySignups groups roster lines by calendar day.
type DaySignups struct {
	Day     string   `json:"day"`
	Signups []Signup `json:"signups"`
}

// Signups lists active bookings from today on, first names only, with
// accommodation pairs merged into one line.
func (e *Engine) Signups(ctx context.Context) ([]DaySignups, error) {
	l := e.ledger()
	if err := l.Load(ctx); err != nil {
		return nil, err
	}
	loc := e.schedule.Location
	today := dateOf(e.now())

	type line struct {
		start time.Time
		day   string
		s     Signup
	}
	var lines []line
	merged := make(map[string]bool)
	for _, r := range l.ActiveBookings() {
		start, _, err := slotlabel.ParseIn(r.Slot, loc)
		if err != nil || dateOf(start).Before(today) {
			continue
		}
		label := r.Slot
		if r.GroupID != "" {
			if merged[r.GroupID] {
				continue
			}
			merged[r.GroupID] = true
			group := l.Group(r.GroupID)
			slots := make([]string, 0, len(group))
			for _, m := range group {
				slots = append(slots, m.Slot)
			}
			slotlabel.Sort(slots)
			label = describe(slots)
			start, _, _ = slotlabel.ParseIn(slots[0], loc)
		}
		lines = append(lines, line{
			start: start,
			day:   slotlabel.DayLabel(start),
			s:     Signup{Student: r.FirstName(), Slot: label, Campus: r.Campus},
		})
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].start.Before(lines[j].start) })

	out := []DaySignups{}
	for _, ln := range lines {
		if n := len(out); n == 0 || out[n-1].Day != ln.day {
			out = append(out, DaySignups{Day: ln.day})
		}
		last := &out[len(out)-1]
		last.Signups = append(last.Signups, ln.s)
	}
	return out, nil
}
