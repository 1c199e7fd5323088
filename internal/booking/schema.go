package booking

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"atlab/internal/slotlabel"
)

// Columns is the canonical column order. Older exports may lack the later ones.
var Columns = []string{
	"id",
	"name",
	"email",
	"student_id",
	"dsps",
	"slot",
	"lab_location",
	"exam_number",
	"grade",
	"graded_by",
	"group_id",
	"status",
	"created_at",
	"updated_at",
}

// LegacyColumns are kept when present but never created.
var LegacyColumns = []string{"day", "time", "timestamp"}

var columnDefaults = map[string]string{
	"status": string(StatusBooked),
}

// NormalizeHeader lowercases and trims header names.
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	return out
}

// EnsureHeader appends any missing canonical column to header and reports what was added.
// Unknown columns keep their position.
func EnsureHeader(header []string) ([]string, []string) {
	if len(header) == 0 {
		out := append([]string(nil), Columns...)
		return out, out
	}
	have := make(map[string]bool, len(header))
	for _, h := range NormalizeHeader(header) {
		have[h] = true
	}
	out := NormalizeHeader(header)
	var added []string
	for _, c := range Columns {
		if !have[c] {
			out = append(out, c)
			added = append(added, c)
		}
	}
	return out, added
}

// RecordFromRow maps a row under header onto a Record. Missing cells take column defaults.
func RecordFromRow(header, row []string) Record {
	cells := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(row) {
			cells[h] = row[i]
		}
	}
	get := func(col string) string {
		v, ok := cells[col]
		if !ok {
			return columnDefaults[col]
		}
		return strings.TrimSpace(v)
	}

	r := Record{
		ID:        get("id"),
		Name:      get("name"),
		Email:     get("email"),
		StudentID: get("student_id"),
		DSPS:      parseFlag(get("dsps")),
		Slot:      get("slot"),
		Campus:    get("lab_location"),
		Exam:      get("exam_number"),
		Grade:     get("grade"),
		GradedBy:  get("graded_by"),
		GroupID:   get("group_id"),
		Status:    Status(strings.ToLower(get("status"))),
		CreatedAt: parseStamp(get("created_at")),
		UpdatedAt: parseStamp(get("updated_at")),
	}

	known := make(map[string]bool, len(Columns))
	for _, c := range Columns {
		known[c] = true
	}
	for col, v := range cells {
		if known[col] {
			continue
		}
		if r.Legacy == nil {
			r.Legacy = make(map[string]string)
		}
		r.Legacy[col] = v
	}
	return r
}

// RowFromRecord renders r in header order.
func RowFromRecord(header []string, r Record) []string {
	row := make([]string, len(header))
	for i, col := range header {
		switch col {
		case "id":
			row[i] = r.ID
		case "name":
			row[i] = r.Name
		case "email":
			row[i] = r.Email
		case "student_id":
			row[i] = r.StudentID
		case "dsps":
			row[i] = strconv.FormatBool(r.DSPS)
		case "slot":
			row[i] = r.Slot
		case "lab_location":
			row[i] = r.Campus
		case "exam_number":
			row[i] = r.Exam
		case "grade":
			row[i] = r.Grade
		case "graded_by":
			row[i] = r.GradedBy
		case "group_id":
			row[i] = r.GroupID
		case "status":
			row[i] = string(r.Status)
		case "created_at":
			row[i] = formatStamp(r.CreatedAt)
		case "updated_at":
			row[i] = formatStamp(r.UpdatedAt)
		default:
			row[i] = r.Legacy[col]
		}
	}
	return row
}

func parseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func parseStamp(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// migrate brings loaded rows up to the current schema: every row gets a stable id
// and every parseable slot label is stored in its generated form, so occupancy
// can compare labels as strings. Unparseable labels are left for the admin view to report.
// It reports whether anything changed so the caller can persist once.
func migrate(records []Record) bool {
	changed := false
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
			changed = true
		}
		if canonical, err := slotlabel.Canonical(records[i].Slot); err == nil && canonical != records[i].Slot {
			records[i].Slot = canonical
			changed = true
		}
	}
	return changed
}
