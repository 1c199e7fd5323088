package slotlabel

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// EnDash separates start and end in every generated label.
const EnDash = "–"

const dayLayout = "Monday 01/02/06"

// ErrFormat is the sentinel behind every FormatError.
var ErrFormat = errors.New("unrecognized slot label")

// FormatError reports a label that matches none of the accepted shapes.
type FormatError struct {
	Label  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("slot label %q: %s", e.Label, e.Reason)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// Accepts en dash, em dash, hyphen or "to"; meridiem on neither, one or both times;
// two or four digit years. The weekday word is not checked against the date.
var labelRE = regexp.MustCompile(`^\s*([A-Za-z]{3,9})\s+(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})\s+` +
	`(\d{1,2}):(\d{2})\s*([AaPp][Mm])?\s*(?:–|—|-|[Tt][Oo])\s*` +
	`(\d{1,2}):(\d{2})\s*([AaPp][Mm])?\s*$`)

// Generate renders the canonical label for a slot on day running from start to end.
// The meridiem is written once, after the end time, when both times share it.
func Generate(day, start, end time.Time) string {
	from := start.Format("3:04")
	if start.Format("PM") != end.Format("PM") {
		from = start.Format("3:04 PM")
	}
	return DayLabel(day) + " " + from + EnDash + end.Format("3:04 PM")
}

// DayLabel renders the "Monday 01/06/25" prefix shared by all labels of a day.
func DayLabel(day time.Time) string {
	return day.Format(dayLayout)
}

// Parse returns the wall-clock start and end of label in UTC.
func Parse(label string) (time.Time, time.Time, error) {
	return ParseIn(label, time.UTC)
}

// ParseIn is Parse with the wall clock anchored in loc.
//
// A meridiem given on only one time applies to both. When the resolved end
// still precedes the start, the end is moved 12 hours later. That recovers
// unmarked labels such as "11:45–12:00" but misreads a single trailing marker
// on a slot that straddles noon ("11:45–12:00 PM"); the behaviour is kept for
// stored data.
func ParseIn(label string, loc *time.Location) (time.Time, time.Time, error) {
	m := labelRE.FindStringSubmatch(label)
	if m == nil {
		return time.Time{}, time.Time{}, &FormatError{Label: label, Reason: "pattern mismatch"}
	}

	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	year, _ := strconv.Atoi(m[4])
	if len(m[4]) == 2 {
		// strptime %y pivot
		if year < 69 {
			year += 2000
		} else {
			year += 1900
		}
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if date.Month() != time.Month(month) || date.Day() != day {
		return time.Time{}, time.Time{}, &FormatError{Label: label, Reason: "invalid date"}
	}

	startMark, endMark := strings.ToUpper(m[7]), strings.ToUpper(m[10])
	if startMark == "" {
		startMark = endMark
	}
	if endMark == "" {
		endMark = startMark
	}

	sh, sm, ok := clock(m[5], m[6], startMark)
	if !ok {
		return time.Time{}, time.Time{}, &FormatError{Label: label, Reason: "invalid start time"}
	}
	eh, em, ok := clock(m[8], m[9], endMark)
	if !ok {
		return time.Time{}, time.Time{}, &FormatError{Label: label, Reason: "invalid end time"}
	}

	start := time.Date(year, time.Month(month), day, sh, sm, 0, 0, loc)
	end := time.Date(year, time.Month(month), day, eh, em, 0, 0, loc)
	if end.Before(start) {
		end = end.Add(12 * time.Hour)
	}
	return start, end, nil
}

// clock resolves an h:mm pair. Without a marker, 1-12 reads as a 12-hour clock
// (12 is midnight) and 13-23 as a 24-hour clock.
func clock(hs, ms, marker string) (int, int, bool) {
	h, _ := strconv.Atoi(hs)
	m, _ := strconv.Atoi(ms)
	if m > 59 {
		return 0, 0, false
	}
	switch marker {
	case "AM", "PM":
		if h < 1 || h > 12 {
			return 0, 0, false
		}
		h %= 12
		if marker == "PM" {
			h += 12
		}
		return h, m, true
	}
	if h > 23 {
		return 0, 0, false
	}
	if h <= 12 {
		h %= 12
	}
	return h, m, true
}

// Canonical rewrites any accepted variant of label into the generated form,
// so two labels for the same interval compare equal as strings.
func Canonical(label string) (string, error) {
	start, end, err := Parse(label)
	if err != nil {
		return "", err
	}
	return Generate(start, start, end), nil
}

// ISOWeek returns the ISO year and week of the label's start.
func ISOWeek(label string) (int, int, error) {
	start, _, err := Parse(label)
	if err != nil {
		return 0, 0, err
	}
	year, week := start.ISOWeek()
	return year, week, nil
}

// Merge renders one label spanning from the first label's start to the last label's end.
func Merge(labels ...string) (string, error) {
	if len(labels) == 0 {
		return "", &FormatError{Reason: "nothing to merge"}
	}
	first, _, err := Parse(labels[0])
	if err != nil {
		return "", err
	}
	_, last, err := Parse(labels[len(labels)-1])
	if err != nil {
		return "", err
	}
	return Generate(first, first, last), nil
}

// Sort orders labels chronologically; unparseable labels sink to the end in lexical order.
func Sort(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		a, _, errA := Parse(labels[i])
		b, _, errB := Parse(labels[j])
		switch {
		case errA != nil && errB != nil:
			return labels[i] < labels[j]
		case errA != nil:
			return false
		case errB != nil:
			return true
		}
		return a.Before(b)
	})
}
