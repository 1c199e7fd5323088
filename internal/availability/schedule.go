package availability

import (
	"strings"
	"time"
)

// Campus names used by the default schedule.
const (
	CampusSLO = "SLO AT Lab"
	CampusNCC = "NCC AT Lab"
)

// DefaultCampuses returns the two lab locations with their standing hours.
func DefaultCampuses() []Campus {
	return []Campus{
		{
			Name: CampusSLO,
			Hours: WeeklyHours{
				time.Monday:    {Open: "09:00", Close: "21:00"},
				time.Tuesday:   {Open: "09:00", Close: "21:00"},
				time.Wednesday: {Open: "08:30", Close: "21:00"},
				time.Thursday:  {Open: "08:15", Close: "20:30"},
				time.Friday:    {Open: "09:15", Close: "15:00"},
				time.Saturday:  {Open: "09:15", Close: "13:00"},
			},
		},
		{
			Name: CampusNCC,
			Hours: WeeklyHours{
				time.Monday:    {Open: "12:00", Close: "16:00"},
				time.Tuesday:   {Open: "08:15", Close: "20:00"},
				time.Wednesday: {Open: "08:15", Close: "17:00"},
				time.Thursday:  {Open: "09:15", Close: "17:00"},
				time.Friday:    {Open: "08:15", Close: "15:00"},
			},
		},
	}
}

// Schedule binds campuses to the rolling horizon and slot length.
type Schedule struct {
	Campuses    []Campus
	HorizonDays int
	SlotMinutes int
	Location    *time.Location
}

// NewSchedule fills defaults for zero values.
func NewSchedule(campuses []Campus, horizonDays, slotMinutes int, loc *time.Location) *Schedule {
	if len(campuses) == 0 {
		campuses = DefaultCampuses()
	}
	if horizonDays <= 0 {
		horizonDays = 21
	}
	if slotMinutes <= 0 {
		slotMinutes = 15
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Schedule{Campuses: campuses, HorizonDays: horizonDays, SlotMinutes: slotMinutes, Location: loc}
}

// Campus looks a campus up by name, ignoring case.
func (s *Schedule) Campus(name string) (Campus, bool) {
	for _, c := range s.Campuses {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return c, true
		}
	}
	return Campus{}, false
}

// Names lists campus names in configured order.
func (s *Schedule) Names() []string {
	names := make([]string, 0, len(s.Campuses))
	for _, c := range s.Campuses {
		names = append(names, c.Name)
	}
	return names
}

// Days generates the campus horizon starting on now's calendar day in the schedule's zone.
func (s *Schedule) Days(c Campus, now time.Time) ([]Day, error) {
	return Generate(c.Hours, s.HorizonDays, s.SlotMinutes, now.In(s.Location))
}
