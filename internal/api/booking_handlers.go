package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"brrowbooking/internal/entities"
	"brrowbooking/internal/service"
)

type BookingHandler struct {
	Calendar *service.CalendarService
	Pricing  *service.PricingService
	validate *validator.Validate
}

func NewBookingHandler(calendar *service.CalendarService, pricing *service.PricingService) *BookingHandler {
	return &BookingHandler{
		Calendar: calendar,
		Pricing:  pricing,
		validate: validator.New(),
	}
}

// GetAvailability returns one entry per day of the requested listing month.
func (h *BookingHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	listingID := mux.Vars(r)["id"]
	month, err := entities.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		http.Error(w, "month must be YYYY-MM", http.StatusBadRequest)
		return
	}

	days, err := h.Calendar.SelectMonth(r.Context(), listingID, month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

// Quote prices a selection without any side effects. The same calculator
// runs again at intent creation, so the number shown here is the number
// charged.
func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var breakdown entities.PriceBreakdown
	var err error
	switch req.Type {
	case entities.TypeRental:
		var start, end time.Time
		if start, end, err = parseRange(req.StartDate, req.EndDate); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		breakdown, err = h.Pricing.QuoteRental(r.Context(), entities.BookingRequest{
			ListingID: req.ListingID,
			StartDate: start,
			EndDate:   end,
		})
	case entities.TypePurchase:
		breakdown, err = h.Pricing.QuotePurchase(r.Context(), req.ListingID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
