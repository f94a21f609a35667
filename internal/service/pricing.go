package service

import (
	"context"
	"math"
	"time"

	"brrowbooking/internal/entities"
)

// Price turns a daily rate, a date range and a fee schedule into an itemized
// breakdown. Pure: identical inputs always produce identical output, which is
// what keeps the amount shown to the buyer and the amount sent to the gateway
// in lockstep. A non-positive range prices to zero across the board.
func Price(dailyRateCents int64, start, end time.Time, schedule entities.FeeSchedule) entities.PriceBreakdown {
	days := entities.WholeDaysBetween(start, end)
	if days <= 0 || dailyRateCents <= 0 {
		return entities.PriceBreakdown{Days: 0}
	}
	subtotal := dailyRateCents * int64(days)
	fees, feeTotal := applyFees(subtotal, schedule)
	return entities.PriceBreakdown{
		Days:          days,
		SubtotalCents: subtotal,
		Fees:          fees,
		TotalCents:    subtotal + feeTotal,
	}
}

// PurchasePrice is the flat, non-rental variant: the subtotal is the listing
// price and the range is one conceptual day.
func PurchasePrice(listingPriceCents int64, schedule entities.FeeSchedule) entities.PriceBreakdown {
	if listingPriceCents <= 0 {
		return entities.PriceBreakdown{Days: 0}
	}
	fees, feeTotal := applyFees(listingPriceCents, schedule)
	return entities.PriceBreakdown{
		Days:          1,
		SubtotalCents: listingPriceCents,
		Fees:          fees,
		TotalCents:    listingPriceCents + feeTotal,
	}
}

// applyFees computes each percentage fee on the subtotal, rounded half-up to
// the nearest cent.
func applyFees(subtotalCents int64, schedule entities.FeeSchedule) ([]entities.FeeLine, int64) {
	var lines []entities.FeeLine
	var total int64
	for _, fee := range schedule {
		amount := int64(math.Round(float64(subtotalCents) * fee.Percent))
		lines = append(lines, entities.FeeLine{Name: fee.Name, AmountCents: amount})
		total += amount
	}
	return lines, total
}

// PricingService quotes bookings against live listing data. Fee schedules are
// injected configuration, one per transaction type.
type PricingService struct {
	listings     ListingService
	rentalFees   entities.FeeSchedule
	purchaseFees entities.FeeSchedule
}

func NewPricingService(listings ListingService, rentalFees, purchaseFees entities.FeeSchedule) *PricingService {
	return &PricingService{listings: listings, rentalFees: rentalFees, purchaseFees: purchaseFees}
}

// QuoteRental validates the request against the listing's minimum stay and
// prices it. Validation failures never reach the payment orchestrator.
func (s *PricingService) QuoteRental(ctx context.Context, req entities.BookingRequest) (entities.PriceBreakdown, error) {
	listing, err := s.listings.GetListing(ctx, req.ListingID)
	if err != nil {
		return entities.PriceBreakdown{}, err
	}
	req.MinimumStayDays = listing.MinimumStayDays
	if err := req.Validate(); err != nil {
		return entities.PriceBreakdown{}, err
	}
	return Price(listing.DailyRateCents, req.StartDate, req.EndDate, s.rentalFees), nil
}

func (s *PricingService) QuotePurchase(ctx context.Context, listingID string) (entities.PriceBreakdown, error) {
	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		return entities.PriceBreakdown{}, err
	}
	return PurchasePrice(listing.PriceCents, s.purchaseFees), nil
}

func (s *PricingService) RentalFees() entities.FeeSchedule   { return s.rentalFees }
func (s *PricingService) PurchaseFees() entities.FeeSchedule { return s.purchaseFees }
