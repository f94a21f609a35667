package entities

import (
	"fmt"
	"time"
)

type DayStatus string

const (
	DayAvailable   DayStatus = "available"
	DayBooked      DayStatus = "booked"
	DayBlocked     DayStatus = "blocked"
	DayUnavailable DayStatus = "unavailable"
)

// AvailabilityDay is one calendar day of a listing's month. Immutable once
// fetched; a re-fetch replaces the whole month.
type AvailabilityDay struct {
	Date               time.Time `json:"date"`
	Status             DayStatus `json:"status"`
	PriceOverrideCents *int64    `json:"price_override_cents,omitempty"`
}

// Month identifies a calendar month in UTC.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses the "YYYY-MM" form used by the availability endpoint.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// First returns midnight UTC on the first day of the month.
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return m.First().AddDate(0, 1, -1).Day()
}

// Contains reports whether t falls inside the month.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}
