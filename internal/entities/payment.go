package entities

// PaymentIntent is the server-issued authorization handed to the capture UI.
// Created once per submission attempt and never mutated; a retry gets a
// fresh intent with a fresh transaction id.
type PaymentIntent struct {
	ClientSecret  string `json:"client_secret"`
	TransactionID string `json:"transaction_id"`
}

// Capture outcomes. The capture UI reports exactly one of these per intent.
const (
	CaptureCompleted = "completed"
	CaptureCanceled  = "canceled"
	CaptureFailed    = "failed"
)

// CaptureResult is what the capture UI reported back for an intent. Reason
// is only set for failures and is surfaced to the user verbatim.
type CaptureResult struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

// Listing is the slice of the listing catalog the booking flow needs. The
// catalog itself is an external collaborator.
type Listing struct {
	ID                    string `json:"id"`
	Title                 string `json:"title"`
	SellerID              string `json:"seller_id"`
	SellerStripeAccountID string `json:"seller_stripe_account_id"`
	DailyRateCents        int64  `json:"daily_rate_cents"`
	PriceCents            int64  `json:"price_cents"`
	MinimumStayDays       int    `json:"minimum_stay_days"`
}
