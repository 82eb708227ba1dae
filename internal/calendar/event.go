// internal/calendar/event.go
package calendar

import (
	"time"
)

// EventKind distinguishes festival events from weather windows (monsoon etc.).
type EventKind string

const (
	KindFestival EventKind = "festival"
	KindWeather  EventKind = "weather"
)

// Recurrence describes when an event's peak window falls each year. Fixed
// Gregorian events set Month/Day/Length; lunar festivals (Diwali, Eid, Holi)
// carry an explicit per-year start date table instead, since their Gregorian
// date shifts year to year.
type Recurrence struct {
	Month  time.Month        `json:"month,omitempty"`
	Day    int               `json:"day,omitempty"`
	Length int               `json:"length"` // peak window length in days
	Starts map[int]time.Time `json:"starts,omitempty"`
}

// WindowFor returns the peak window [start, end] for a given year.
func (r Recurrence) WindowFor(year int) (time.Time, time.Time, bool) {
	length := r.Length
	if length < 1 {
		length = 1
	}
	if r.Starts != nil {
		start, ok := r.Starts[year]
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		start = start.UTC().Truncate(24 * time.Hour)
		return start, start.Add(time.Duration(length-1) * 24 * time.Hour), true
	}
	if r.Month == 0 || r.Day == 0 {
		return time.Time{}, time.Time{}, false
	}
	start := time.Date(year, r.Month, r.Day, 0, 0, 0, 0, time.UTC)
	return start, start.Add(time.Duration(length-1) * 24 * time.Hour), true
}

// Event is one named demand-affecting calendar entry.
type Event struct {
	Name           string     `json:"name"`
	Kind           EventKind  `json:"kind"`
	Recurrence     Recurrence `json:"recurrence"`
	Categories     []string   `json:"categories,omitempty"` // empty = all categories
	Locations      []string   `json:"locations,omitempty"`  // empty = nationwide
	BaseMultiplier float64    `json:"base_multiplier"`
	RampDays       int        `json:"ramp_days"`  // impact builds over N days before the peak
	DecayDays      int        `json:"decay_days"` // and fades over M days after
	Confidence     float64    `json:"confidence"`
}

// MultiplierOn returns the event's demand multiplier for a date: the base
// multiplier inside the peak window, a linear ramp toward it over RampDays
// before, a linear decay back to 1 over DecayDays after, and 1 elsewhere.
func (e Event) MultiplierOn(date time.Time) float64 {
	date = date.UTC().Truncate(24 * time.Hour)

	// A window near the year boundary can belong to either adjacent year.
	for _, year := range []int{date.Year() - 1, date.Year(), date.Year() + 1} {
		start, end, ok := e.Recurrence.WindowFor(year)
		if !ok {
			continue
		}
		if m, active := e.multiplierWithin(date, start, end); active {
			return m
		}
	}
	return 1
}

func (e Event) multiplierWithin(date, start, end time.Time) (float64, bool) {
	if !date.Before(start) && !date.After(end) {
		return e.BaseMultiplier, true
	}
	if date.Before(start) && e.RampDays > 0 {
		daysOut := int(start.Sub(date).Hours() / 24)
		if daysOut <= e.RampDays {
			frac := 1 - float64(daysOut)/float64(e.RampDays+1)
			return 1 + (e.BaseMultiplier-1)*frac, true
		}
	}
	if date.After(end) && e.DecayDays > 0 {
		daysPast := int(date.Sub(end).Hours() / 24)
		if daysPast <= e.DecayDays {
			frac := 1 - float64(daysPast)/float64(e.DecayDays+1)
			return 1 + (e.BaseMultiplier-1)*frac, true
		}
	}
	return 1, false
}

// appliesTo reports whether the event covers a category and location.
// stateOf maps a city to its state so state-scoped events match their cities.
func (e Event) appliesTo(category, location string, stateOf func(string) (string, bool)) bool {
	if len(e.Categories) > 0 {
		found := false
		for _, c := range e.Categories {
			if c == category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(e.Locations) == 0 {
		return true
	}
	state := ""
	if stateOf != nil {
		if s, ok := stateOf(location); ok {
			state = s
		}
	}
	for _, l := range e.Locations {
		if l == location || (state != "" && l == state) {
			return true
		}
	}
	return false
}
