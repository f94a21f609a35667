package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int, status DayStatus) AvailabilityDay {
	return AvailabilityDay{
		Date:   time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC),
		Status: status,
	}
}

func TestTapCycle(t *testing.T) {
	var sel DateSelection

	sel = sel.Tap(day(5, DayAvailable))
	require.NotNil(t, sel.Start)
	assert.Nil(t, sel.End)
	assert.Equal(t, 5, sel.Start.Day())

	sel = sel.Tap(day(8, DayAvailable))
	require.True(t, sel.Complete())
	assert.Equal(t, 5, sel.Start.Day())
	assert.Equal(t, 8, sel.End.Day())

	// Third tap starts over with a new range.
	sel = sel.Tap(day(12, DayAvailable))
	require.NotNil(t, sel.Start)
	assert.Nil(t, sel.End)
	assert.Equal(t, 12, sel.Start.Day())
}

func TestTapEarlierDayRestartsRange(t *testing.T) {
	var sel DateSelection
	sel = sel.Tap(day(10, DayAvailable))
	sel = sel.Tap(day(3, DayAvailable))

	require.NotNil(t, sel.Start)
	assert.Nil(t, sel.End)
	assert.Equal(t, 3, sel.Start.Day())
}

func TestTapIgnoresUnavailableDays(t *testing.T) {
	var sel DateSelection
	for _, status := range []DayStatus{DayBooked, DayBlocked, DayUnavailable} {
		sel = sel.Tap(day(7, status))
		assert.Nil(t, sel.Start)
		assert.Nil(t, sel.End)
	}

	sel = sel.Tap(day(5, DayAvailable))
	next := sel.Tap(day(9, DayBooked))
	assert.Equal(t, sel, next)
}
