package db

import (
	"database/sql"
	"time"
)

// Transaction is the durable record created at intent time and owned by the
// backend. Rental window columns are NULL for purchases.
type Transaction struct {
	ID                    string
	ListingID             string
	BuyerID               string
	SellerID              string
	Type                  string
	AmountCents           int64
	Currency              string
	DeliveryMethod        string
	BuyerMessage          sql.NullString
	RentalStart           sql.NullTime
	RentalEnd             sql.NullTime
	State                 string
	BookingStatus         string
	PaymentStatus         string
	CancellationPolicy    string
	FailureReason         sql.NullString
	StripePaymentIntentID sql.NullString
	RefundedCents         int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// SupportUser is a staff account for the escalation endpoints.
type SupportUser struct {
	ID           int
	Email        string
	PasswordHash string
}
