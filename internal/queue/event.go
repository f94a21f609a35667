// Package queue publishes transaction lifecycle events to the message broker
// consumed by the messaging and notification services.
package queue

import "time"

// Routing keys on the transactions exchange.
const (
	RouteSucceeded          = "transaction.succeeded"
	RouteFailed             = "transaction.failed"
	RouteConfirmationFailed = "transaction.confirmation_failed"
)

// TransactionEvent is the wire payload. The messaging service uses succeeded
// events to open the buyer/seller conversation thread; delivery is
// fire-and-forget and never gates the payment flow.
type TransactionEvent struct {
	TransactionID string    `json:"transaction_id"`
	ListingID     string    `json:"listing_id"`
	BuyerID       string    `json:"buyer_id"`
	SellerID      string    `json:"seller_id"`
	Type          string    `json:"type"`
	State         string    `json:"state"`
	AmountCents   int64     `json:"amount_cents"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
