package service

import (
	"context"
	"sync"
	"time"

	"brrowbooking/internal/entities"
)

// CalendarService fetches and holds per-day availability for the listing
// month currently being viewed. Responses are keyed by the requested listing
// and month: a slow response for a month the viewer has already navigated
// away from is returned to its caller but never stored, so it cannot
// overwrite the month on display. On a failed fetch the previously loaded
// month is retained untouched.
type CalendarService struct {
	listings ListingService

	mu sync.Mutex

	// The (listing, month) most recently requested. Only used to detect
	// stale responses; the displayed state below moves on success alone.
	reqListingID string
	reqMonth     entities.Month

	listingID string
	month     entities.Month
	days      []entities.AvailabilityDay
	loaded    bool
}

func NewCalendarService(listings ListingService) *CalendarService {
	return &CalendarService{listings: listings}
}

// SelectMonth navigates to a listing month and fetches its availability. The
// returned slice always has exactly one entry per day of the month, in
// order; days the collaborator did not report come back unavailable.
func (s *CalendarService) SelectMonth(ctx context.Context, listingID string, month entities.Month) ([]entities.AvailabilityDay, error) {
	s.mu.Lock()
	s.reqListingID = listingID
	s.reqMonth = month
	s.mu.Unlock()

	fetched, err := s.listings.GetAvailability(ctx, listingID, month)
	if err != nil {
		// The previously loaded month stays on display untouched.
		return nil, err
	}
	days := normalizeMonth(month, fetched)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reqListingID != listingID || s.reqMonth != month {
		// Stale response: the viewer moved on while this fetch was in
		// flight. Hand the data back but do not store it.
		return days, nil
	}
	s.listingID = listingID
	s.month = month
	s.days = days
	s.loaded = true
	return days, nil
}

// Current returns the last successfully loaded month's days.
func (s *CalendarService) Current() (entities.Month, []entities.AvailabilityDay, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return entities.Month{}, nil, false
	}
	out := make([]entities.AvailabilityDay, len(s.days))
	copy(out, s.days)
	return s.month, out, true
}

// Tap applies the three-tap selection cycle against the loaded month.
func (s *CalendarService) Tap(selection entities.DateSelection, date time.Time) entities.DateSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, day := range s.days {
		if day.Date.Equal(date) {
			return selection.Tap(day)
		}
	}
	return selection
}

// normalizeMonth guarantees full month coverage: one ordered entry per day,
// defaulting to unavailable where the collaborator reported nothing.
func normalizeMonth(month entities.Month, fetched []entities.AvailabilityDay) []entities.AvailabilityDay {
	byDay := make(map[int]entities.AvailabilityDay, len(fetched))
	for _, d := range fetched {
		if month.Contains(d.Date) {
			byDay[d.Date.Day()] = d
		}
	}
	first := month.First()
	days := make([]entities.AvailabilityDay, 0, month.Days())
	for i := 0; i < month.Days(); i++ {
		date := first.AddDate(0, 0, i)
		if d, ok := byDay[date.Day()]; ok {
			d.Date = date
			days = append(days, d)
			continue
		}
		days = append(days, entities.AvailabilityDay{Date: date, Status: entities.DayUnavailable})
	}
	return days
}
