package availability

import (
	"errors"
	"fmt"
	"time"

	"atlab/internal/slotlabel"
)

// Hours is one day's opening window in 24h "HH:MM".
type Hours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// WeeklyHours maps a weekday to its window. A missing weekday means closed.
type WeeklyHours map[time.Weekday]Hours

// Campus is a bookable lab location.
type Campus struct {
	Name  string      `json:"name"`
	Hours WeeklyHours `json:"hours"`
}

// Day holds the ordered slot labels generated for one calendar day.
type Day struct {
	Label string    `json:"label"`
	Date  time.Time `json:"date"`
	Slots []string  `json:"slots"`
}

// Generate produces slot labels for every open day in [reference, reference+horizonDays).
// Slots are back to back from the opening time and never run past closing.
func Generate(hours WeeklyHours, horizonDays, slotMinutes int, reference time.Time) ([]Day, error) {
	if slotMinutes <= 0 {
		return nil, errors.New("slot length must be positive")
	}
	y, m, d := reference.Date()
	first := time.Date(y, m, d, 0, 0, 0, 0, reference.Location())
	step := time.Duration(slotMinutes) * time.Minute

	var days []Day
	for i := 0; i < horizonDays; i++ {
		date := first.AddDate(0, 0, i)
		window, ok := hours[date.Weekday()]
		if !ok {
			continue
		}
		open, err := at(date, window.Open)
		if err != nil {
			return nil, fmt.Errorf("%s open: %w", date.Weekday(), err)
		}
		closing, err := at(date, window.Close)
		if err != nil {
			return nil, fmt.Errorf("%s close: %w", date.Weekday(), err)
		}

		var slots []string
		for cur := open; !cur.Add(step).After(closing); cur = cur.Add(step) {
			slots = append(slots, slotlabel.Generate(date, cur, cur.Add(step)))
		}
		if len(slots) == 0 {
			continue
		}
		days = append(days, Day{Label: slotlabel.DayLabel(date), Date: date, Slots: slots})
	}
	return days, nil
}

func at(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

// Pairs returns every pair of back-to-back slots in a day's list.
func Pairs(slots []string) [][2]string {
	var pairs [][2]string
	for i := 0; i+1 < len(slots); i++ {
		_, end, err := slotlabel.Parse(slots[i])
		if err != nil {
			continue
		}
		next, _, err := slotlabel.Parse(slots[i+1])
		if err != nil || !next.Equal(end) {
			continue
		}
		pairs = append(pairs, [2]string{slots[i], slots[i+1]})
	}
	return pairs
}

// Free filters slots down to those not present in occupied.
func Free(slots []string, occupied map[string]struct{}) []string {
	free := make([]string, 0, len(slots))
	for _, s := range slots {
		if _, taken := occupied[s]; !taken {
			free = append(free, s)
		}
	}
	return free
}

// Find returns the day whose label matches dayLabel.
func Find(days []Day, dayLabel string) (Day, bool) {
	for _, d := range days {
		if d.Label == dayLabel {
			return d, true
		}
	}
	return Day{}, false
}
