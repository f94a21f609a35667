package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"brrowbooking/internal/entities"
	apperrors "brrowbooking/internal/errors"
	"brrowbooking/internal/service"
)

type PaymentHandler struct {
	Payments *service.PaymentService
	validate *validator.Validate
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{Payments: payments, validate: validator.New()}
}

// CreateIntent accepts a reviewed submission and returns the client secret
// the capture UI needs. Exactly one intent per accepted submission.
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	kind := entities.PurchaseKind()
	if req.Type == entities.TypeRental {
		start, end, err := parseRange(req.StartDate, req.EndDate)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		kind = entities.RentalKind(entities.RentalWindow{Start: start, End: end})
	}

	intent, err := h.Payments.CreateIntent(r.Context(), service.CreateIntentRequest{
		ListingID:          req.ListingID,
		BuyerID:            req.BuyerID,
		Kind:               kind,
		DeliveryMethod:     req.DeliveryMethod,
		BuyerMessage:       req.BuyerMessage,
		CancellationPolicy: entities.CancellationPolicy(req.CancellationPolicy),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateIntentResponse{
		ClientSecret:  intent.ClientSecret,
		TransactionID: intent.TransactionID,
	})
}

// CaptureResult records the exactly-one outcome reported by the capture UI.
func (h *PaymentHandler) CaptureResult(w http.ResponseWriter, r *http.Request) {
	transactionID := mux.Vars(r)["transactionId"]

	var req CaptureResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := h.Payments.HandleCaptureResult(r.Context(), transactionID, entities.CaptureResult{
		Outcome: req.Outcome,
		Reason:  req.Reason,
	})
	if err != nil && !errors.Is(err, apperrors.ErrConfirmationFailed) {
		writeError(w, err)
		return
	}
	// confirmation_failed still returns the record so the client can render
	// the support path; the state field carries the bad news.
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

// GetTransaction returns the transaction record.
func (h *PaymentHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Payments.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

// CancelBooking handles a buyer-initiated cancellation, refunding per the
// cancellation policy when the booking already succeeded.
func (h *PaymentHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Payments.Cancel(r.Context(), mux.Vars(r)["transactionId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}
