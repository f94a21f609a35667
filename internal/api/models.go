package api

import (
	"time"

	"brrowbooking/internal/db"
	"brrowbooking/internal/entities"
)

// Quote
type QuoteRequest struct {
	ListingID string `json:"listing_id" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=rental purchase"`
	StartDate string `json:"start_date" validate:"required_if=Type rental,omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required_if=Type rental,omitempty,datetime=2006-01-02"`
}

// Payment intent
type CreateIntentRequest struct {
	ListingID          string `json:"listing_id" validate:"required"`
	BuyerID            string `json:"buyer_id" validate:"required"`
	Type               string `json:"type" validate:"required,oneof=rental purchase"`
	StartDate          string `json:"start_date" validate:"required_if=Type rental,omitempty,datetime=2006-01-02"`
	EndDate            string `json:"end_date" validate:"required_if=Type rental,omitempty,datetime=2006-01-02"`
	DeliveryMethod     string `json:"delivery_method" validate:"required,oneof=pickup shipping meetup"`
	BuyerMessage       string `json:"buyer_message"`
	CancellationPolicy string `json:"cancellation_policy" validate:"omitempty,oneof=flexible moderate strict"`
}

type CreateIntentResponse struct {
	ClientSecret  string `json:"client_secret"`
	TransactionID string `json:"transaction_id"`
}

type CaptureResultRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=completed canceled failed"`
	Reason  string `json:"reason"`
}

// Support
type ResolveRequest struct {
	Action string `json:"action" validate:"required,oneof=confirm refund"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CreateSupportUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// TransactionResponse is the client's read-through view of the record.
// Retryable tells the UI whether to re-enable the submit control;
// confirmation_failed renders the support-contact path instead.
type TransactionResponse struct {
	ID             string                 `json:"id"`
	ListingID      string                 `json:"listing_id"`
	BuyerID        string                 `json:"buyer_id"`
	SellerID       string                 `json:"seller_id"`
	Type           string                 `json:"type"`
	AmountCents    int64                  `json:"amount_cents"`
	Currency       string                 `json:"currency"`
	DeliveryMethod string                 `json:"delivery_method"`
	BuyerMessage   string                 `json:"buyer_message,omitempty"`
	RentalWindow   *entities.RentalWindow `json:"rental_window,omitempty"`
	State          string                 `json:"state"`
	BookingStatus  string                 `json:"booking_status"`
	PaymentStatus  string                 `json:"payment_status"`
	FailureReason  string                 `json:"failure_reason,omitempty"`
	RefundedCents  int64                  `json:"refunded_cents,omitempty"`
	Retryable      bool                   `json:"retryable"`
	ContactSupport bool                   `json:"contact_support"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func toTransactionResponse(t *db.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:             t.ID,
		ListingID:      t.ListingID,
		BuyerID:        t.BuyerID,
		SellerID:       t.SellerID,
		Type:           t.Type,
		AmountCents:    t.AmountCents,
		Currency:       t.Currency,
		DeliveryMethod: t.DeliveryMethod,
		State:          t.State,
		BookingStatus:  t.BookingStatus,
		PaymentStatus:  t.PaymentStatus,
		RefundedCents:  t.RefundedCents,
		Retryable:      entities.Retryable(t.State),
		ContactSupport: t.State == entities.StateConfirmationFailed,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if t.BuyerMessage.Valid {
		resp.BuyerMessage = t.BuyerMessage.String
	}
	if t.FailureReason.Valid {
		resp.FailureReason = t.FailureReason.String
	}
	if t.RentalStart.Valid && t.RentalEnd.Valid {
		resp.RentalWindow = &entities.RentalWindow{Start: t.RentalStart.Time, End: t.RentalEnd.Time}
	}
	return resp
}
