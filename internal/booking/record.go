package booking

import (
	"strings"
	"time"
)

// Status of a booking row. A blank status comes from legacy rows and counts as booked.
type Status string

const (
	StatusBooked   Status = "booked"
	StatusCanceled Status = "canceled"
)

// Record is one reserved slot for one student.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	StudentID string    `json:"student_id"`
	DSPS      bool      `json:"dsps"`
	Slot      string    `json:"slot"`
	Campus    string    `json:"lab_location"`
	Exam      string    `json:"exam_number"`
	Grade     string    `json:"grade"`
	GradedBy  string    `json:"graded_by"`
	GroupID   string    `json:"group_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Legacy holds columns the current schema does not know about, keyed by
	// lowercased header. They are written back untouched.
	Legacy map[string]string `json:"-"`
}

// Active reports whether the row still holds its slot.
func (r Record) Active() bool {
	return r.Status == StatusBooked || strings.TrimSpace(string(r.Status)) == ""
}

// Student reports whether the row belongs to email, compared case-insensitively.
func (r Record) Student(email string) bool {
	return sameEmail(r.Email, email)
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// FirstName is the display name shown on the public roster.
func (r Record) FirstName() string {
	if f := strings.Fields(r.Name); len(f) > 0 {
		return f[0]
	}
	return ""
}

func cloneRecords(in []Record) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		if r.Legacy != nil {
			legacy := make(map[string]string, len(r.Legacy))
			for k, v := range r.Legacy {
				legacy[k] = v
			}
			r.Legacy = legacy
		}
		out[i] = r
	}
	return out
}
