package entities

import "time"

// DateSelection is the calendar's current start/end pick. At most one range
// is ever active; the zero value means nothing selected.
type DateSelection struct {
	Start *time.Time
	End   *time.Time
}

// Tap applies one calendar tap and returns the next selection. The cycle is
// deterministic: first available tap sets the start, a later available day
// sets the end, and any further tap resets to a new start. Days that are not
// available are ignored. There is no extend-from-either-end behavior.
func (s DateSelection) Tap(day AvailabilityDay) DateSelection {
	if day.Status != DayAvailable {
		return s
	}
	d := day.Date
	switch {
	case s.Start == nil:
		return DateSelection{Start: &d}
	case s.End == nil && d.After(*s.Start):
		return DateSelection{Start: s.Start, End: &d}
	default:
		return DateSelection{Start: &d}
	}
}

// Complete reports whether both ends of the range are selected.
func (s DateSelection) Complete() bool {
	return s.Start != nil && s.End != nil
}
