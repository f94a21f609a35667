package entities

import (
	"time"

	apperrors "brrowbooking/internal/errors"
)

// BookingRequest is a buyer's selected range for a listing. Construction is
// unchecked; Validate gates submission.
type BookingRequest struct {
	ListingID       string
	StartDate       time.Time
	EndDate         time.Time
	MinimumStayDays int
}

// Days returns the whole-day length of the range; zero or negative ranges
// yield 0.
func (r BookingRequest) Days() int {
	return WholeDaysBetween(r.StartDate, r.EndDate)
}

// Validate enforces the submission invariants: start before end and a
// duration of at least the listing's minimum stay. Failures are validation
// errors and never reach the payment orchestrator.
func (r BookingRequest) Validate() error {
	if !r.EndDate.After(r.StartDate) {
		return apperrors.ErrValidation
	}
	if r.Days() < r.MinimumStayDays {
		return apperrors.ErrValidation
	}
	return nil
}

// WholeDaysBetween counts whole days from start to end, flooring partial
// days. Non-positive spans count as zero.
func WholeDaysBetween(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start).Hours() / 24)
}

// Delivery methods for the exchange of the item.
const (
	DeliveryPickup   = "pickup"
	DeliveryShipping = "shipping"
	DeliveryMeetup   = "meetup"
)
