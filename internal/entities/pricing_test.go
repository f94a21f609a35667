package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseFeeSchedule(t *testing.T) {
	schedule, err := ParseFeeSchedule("platform:0.03,protection:0.10")
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	assert.Equal(t, Fee{Name: "platform", Percent: 0.03}, schedule[0])
	assert.Equal(t, Fee{Name: "protection", Percent: 0.10}, schedule[1])

	schedule, err = ParseFeeSchedule("")
	require.NoError(t, err)
	assert.Nil(t, schedule)

	_, err = ParseFeeSchedule("platform")
	assert.Error(t, err)

	_, err = ParseFeeSchedule("platform:abc")
	assert.Error(t, err)

	_, err = ParseFeeSchedule("platform:-0.1")
	assert.Error(t, err)
}

func TestBookingRequestValidate(t *testing.T) {
	start := mustDate("2025-06-01")

	cases := []struct {
		name    string
		req     BookingRequest
		wantErr bool
	}{
		{
			name: "valid range",
			req:  BookingRequest{StartDate: start, EndDate: start.AddDate(0, 0, 3)},
		},
		{
			name:    "end equals start",
			req:     BookingRequest{StartDate: start, EndDate: start},
			wantErr: true,
		},
		{
			name:    "end before start",
			req:     BookingRequest{StartDate: start, EndDate: start.AddDate(0, 0, -1)},
			wantErr: true,
		},
		{
			name:    "below minimum stay",
			req:     BookingRequest{StartDate: start, EndDate: start.AddDate(0, 0, 2), MinimumStayDays: 3},
			wantErr: true,
		},
		{
			name: "meets minimum stay exactly",
			req:  BookingRequest{StartDate: start, EndDate: start.AddDate(0, 0, 3), MinimumStayDays: 3},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMonth(t *testing.T) {
	m, err := ParseMonth("2025-06")
	require.NoError(t, err)
	assert.Equal(t, 2025, m.Year)
	assert.Equal(t, 30, m.Days())
	assert.Equal(t, "2025-06", m.String())
	assert.True(t, m.Contains(mustDate("2025-06-15")))
	assert.False(t, m.Contains(mustDate("2025-07-01")))

	feb, err := ParseMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, 29, feb.Days())

	_, err = ParseMonth("June 2025")
	assert.Error(t, err)
}
