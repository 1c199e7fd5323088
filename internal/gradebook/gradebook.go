package gradebook

import (
	"context"
	"fmt"
	"strings"
)

// NotesColumn is the hidden column carrying accommodation notes.
const NotesColumn = "DSPS / Notes"

// ExamTitle names the column that records sign-ups for an exam number.
func ExamTitle(exam string) string {
	return "Lab Exam " + strings.TrimSpace(exam) + " Slot"
}

// Recorder mirrors booked slots into a course gradebook.
type Recorder struct {
	client   *Client
	courseID int64
	columns  map[string]int64
}

// NewRecorder binds a client to one course.
func NewRecorder(client *Client, courseID int64) *Recorder {
	return &Recorder{client: client, courseID: courseID}
}

// EnsureColumns creates any missing exam column plus the hidden notes column.
// New columns are appended after the highest existing position.
func (r *Recorder) EnsureColumns(ctx context.Context, exams []string) (map[string]int64, error) {
	existing, err := r.client.ListColumns(ctx, r.courseID)
	if err != nil {
		return nil, err
	}
	byTitle := make(map[string]Column, len(existing))
	next := 1
	for _, c := range existing {
		byTitle[c.Title] = c
		if c.Position >= next {
			next = c.Position + 1
		}
	}

	ids := make(map[string]int64, len(exams)+1)
	ensure := func(title string, hidden bool) error {
		if c, ok := byTitle[title]; ok {
			ids[title] = c.ID
			return nil
		}
		id, err := r.client.CreateColumn(ctx, r.courseID, title, next, hidden)
		if err != nil {
			return fmt.Errorf("create column %q: %w", title, err)
		}
		next++
		ids[title] = id
		return nil
	}
	for _, e := range exams {
		if err := ensure(ExamTitle(e), false); err != nil {
			return nil, err
		}
	}
	if err := ensure(NotesColumn, true); err != nil {
		return nil, err
	}
	r.columns = ids
	return ids, nil
}

// RecordSignup writes slot into the student's exam cell, and note into the
// notes column when given. The student is found by email or login.
func (r *Recorder) RecordSignup(ctx context.Context, email, exam, slot, note string) (int64, error) {
	if r.columns == nil {
		return 0, fmt.Errorf("gradebook columns not loaded")
	}
	colID, ok := r.columns[ExamTitle(exam)]
	if !ok {
		return 0, fmt.Errorf("no gradebook column for exam %s", exam)
	}
	users, err := r.client.SearchCourseUsers(ctx, r.courseID, email, "student")
	if err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, fmt.Errorf("no enrolled student matching %s", email)
	}
	user := users[0]
	for _, u := range users {
		if strings.EqualFold(u.LoginID, email) || strings.EqualFold(u.Email, email) {
			user = u
			break
		}
	}

	if err := r.client.WriteCell(ctx, r.courseID, colID, user.ID, slot); err != nil {
		return 0, err
	}
	if note != "" {
		if err := r.client.WriteCell(ctx, r.courseID, r.columns[NotesColumn], user.ID, note); err != nil {
			return 0, err
		}
	}
	return user.ID, nil
}

// RosterRow is a student with their values in the tracked columns.
type RosterRow struct {
	UserID int64             `json:"user_id"`
	Name   string            `json:"name"`
	Login  string            `json:"login"`
	Values map[string]string `json:"values"`
}

// Roster joins the course roster with the tracked columns.
func (r *Recorder) Roster(ctx context.Context) ([]RosterRow, error) {
	users, err := r.client.ListCourseUsers(ctx, r.courseID, "student")
	if err != nil {
		return nil, err
	}
	perColumn := make(map[string]map[int64]string, len(r.columns))
	for title, id := range r.columns {
		cells, err := r.client.ReadColumnData(ctx, r.courseID, id)
		if err != nil {
			return nil, err
		}
		m := make(map[int64]string, len(cells))
		for _, c := range cells {
			m[c.UserID] = c.Content
		}
		perColumn[title] = m
	}

	rows := make([]RosterRow, 0, len(users))
	for _, u := range users {
		name := u.SortableName
		if name == "" {
			name = u.Name
		}
		row := RosterRow{UserID: u.ID, Name: name, Login: u.LoginID, Values: make(map[string]string, len(r.columns))}
		for title := range r.columns {
			row.Values[title] = perColumn[title][u.ID]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
