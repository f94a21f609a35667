package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brrowbooking/internal/entities"
	apperrors "brrowbooking/internal/errors"
)

// fakeListings substitutes the listing catalog in service tests.
type fakeListings struct {
	listing  *entities.Listing
	err      error
	days     []entities.AvailabilityDay
	availErr error

	// onFetch runs inside GetAvailability, before it returns. Used to
	// simulate a navigation racing a slow response.
	onFetch    func()
	fetchCalls int
}

func (f *fakeListings) GetListing(ctx context.Context, listingID string) (*entities.Listing, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.listing, nil
}

func (f *fakeListings) GetAvailability(ctx context.Context, listingID string, month entities.Month) ([]entities.AvailabilityDay, error) {
	f.fetchCalls++
	if f.onFetch != nil {
		hook := f.onFetch
		f.onFetch = nil
		hook()
	}
	if f.availErr != nil {
		return nil, f.availErr
	}
	return f.days, nil
}

func availDay(year int, month time.Month, day int, status entities.DayStatus) entities.AvailabilityDay {
	return entities.AvailabilityDay{
		Date:   time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		Status: status,
	}
}

func TestSelectMonthNormalizesToFullMonth(t *testing.T) {
	june := entities.Month{Year: 2025, Month: time.June}
	listings := &fakeListings{days: []entities.AvailabilityDay{
		availDay(2025, time.June, 3, entities.DayAvailable),
		availDay(2025, time.June, 10, entities.DayBooked),
		// Out of month; must be dropped.
		availDay(2025, time.July, 1, entities.DayAvailable),
	}}
	svc := NewCalendarService(listings)

	days, err := svc.SelectMonth(context.Background(), "lst_1", june)
	require.NoError(t, err)
	require.Len(t, days, 30)

	for i, d := range days {
		assert.Equal(t, i+1, d.Date.Day())
	}
	assert.Equal(t, entities.DayAvailable, days[2].Status)
	assert.Equal(t, entities.DayBooked, days[9].Status)
	assert.Equal(t, entities.DayUnavailable, days[0].Status)
	assert.Equal(t, entities.DayUnavailable, days[29].Status)
}

func TestSelectMonthFailureRetainsPreviousMonth(t *testing.T) {
	june := entities.Month{Year: 2025, Month: time.June}
	july := entities.Month{Year: 2025, Month: time.July}
	listings := &fakeListings{days: []entities.AvailabilityDay{
		availDay(2025, time.June, 3, entities.DayAvailable),
	}}
	svc := NewCalendarService(listings)

	_, err := svc.SelectMonth(context.Background(), "lst_1", june)
	require.NoError(t, err)

	listings.availErr = apperrors.ErrNetwork
	_, err = svc.SelectMonth(context.Background(), "lst_1", july)
	assert.True(t, errors.Is(err, apperrors.ErrNetwork))

	// The month label and its days move together: a failed fetch leaves
	// both on the previously loaded month.
	month, days, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, june, month)
	require.Len(t, days, 30)
	assert.Equal(t, entities.DayAvailable, days[2].Status)
	for _, d := range days {
		assert.True(t, month.Contains(d.Date))
	}

	// A later successful fetch replaces the display as usual.
	listings.availErr = nil
	listings.days = []entities.AvailabilityDay{
		availDay(2025, time.July, 5, entities.DayAvailable),
	}
	_, err = svc.SelectMonth(context.Background(), "lst_1", july)
	require.NoError(t, err)
	month, days, ok = svc.Current()
	require.True(t, ok)
	assert.Equal(t, july, month)
	require.Len(t, days, 31)
}

func TestSelectMonthDiscardsStaleResponse(t *testing.T) {
	june := entities.Month{Year: 2025, Month: time.June}
	july := entities.Month{Year: 2025, Month: time.July}
	listings := &fakeListings{days: []entities.AvailabilityDay{
		availDay(2025, time.June, 3, entities.DayAvailable),
	}}
	svc := NewCalendarService(listings)

	// While June's fetch is in flight the viewer navigates to July.
	listings.onFetch = func() {
		listings.days = []entities.AvailabilityDay{
			availDay(2025, time.July, 5, entities.DayAvailable),
		}
		_, err := svc.SelectMonth(context.Background(), "lst_1", july)
		require.NoError(t, err)
	}

	_, err := svc.SelectMonth(context.Background(), "lst_1", june)
	require.NoError(t, err)

	// July, not the late June response, stays on display.
	month, days, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, july, month)
	require.Len(t, days, 31)
	assert.Equal(t, entities.DayAvailable, days[4].Status)
}

func TestCalendarTapUsesLoadedMonth(t *testing.T) {
	june := entities.Month{Year: 2025, Month: time.June}
	listings := &fakeListings{days: []entities.AvailabilityDay{
		availDay(2025, time.June, 3, entities.DayAvailable),
		availDay(2025, time.June, 6, entities.DayAvailable),
		availDay(2025, time.June, 10, entities.DayBooked),
	}}
	svc := NewCalendarService(listings)
	_, err := svc.SelectMonth(context.Background(), "lst_1", june)
	require.NoError(t, err)

	var sel entities.DateSelection
	sel = svc.Tap(sel, time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC))
	sel = svc.Tap(sel, time.Date(2025, time.June, 6, 0, 0, 0, 0, time.UTC))
	require.True(t, sel.Complete())

	// Booked day is a no-op.
	next := svc.Tap(sel, time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, sel, next)
}
