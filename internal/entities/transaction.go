package entities

import (
	"time"

	apperrors "brrowbooking/internal/errors"
)

// Transaction states. A transaction moves strictly forward; the table in
// AllowedTransitions is the single source of truth for what may follow what.
const (
	StateCreated            = "created"
	StateAwaitingPayment    = "awaiting_payment"
	StatePaymentCaptured    = "payment_captured"
	StateSucceeded          = "succeeded"
	StateCanceled           = "canceled"
	StateFailed             = "failed"
	StateConfirmationFailed = "confirmation_failed"
)

// AllowedTransitions defines the valid state transitions. The key is the
// current state, the value the states it may move to. Terminal states map to
// an empty slice. Note there is no awaiting_payment -> succeeded edge: a
// success must pass through payment_captured.
var AllowedTransitions = map[string][]string{
	StateCreated: {
		StateAwaitingPayment,
		StateFailed,
	},
	StateAwaitingPayment: {
		StatePaymentCaptured,
		StateCanceled,
		StateFailed,
	},
	StatePaymentCaptured: {
		StateSucceeded,
		StateConfirmationFailed,
	},
	StateSucceeded:          {},
	StateCanceled:           {},
	StateFailed:             {},
	StateConfirmationFailed: {},
}

// CanTransition checks if a transition from one state to another is allowed.
func CanTransition(from, to string) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition if the move is not allowed.
func ValidateTransition(from, to string) error {
	if !CanTransition(from, to) {
		return apperrors.ErrInvalidTransition
	}
	return nil
}

// IsTerminal reports whether the state has no outgoing transitions. Terminal
// transactions are immutable from then on.
func IsTerminal(state string) bool {
	next, ok := AllowedTransitions[state]
	return ok && len(next) == 0
}

// Retryable reports whether a buyer may start a fresh attempt (new intent,
// new transaction) after landing in this state. confirmation_failed is
// deliberately excluded: money has moved and a blind retry risks a double
// charge, so that state only exits through the support path.
func Retryable(state string) bool {
	return state == StateCanceled || state == StateFailed
}

// Transaction types.
const (
	TypePurchase = "purchase"
	TypeRental   = "rental"
)

// RentalWindow is the booked date range of a rental transaction.
type RentalWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TransactionKind pairs the type with its rental window so that a purchase
// carrying a window is unrepresentable. Constructed only through
// PurchaseKind/RentalKind.
type TransactionKind struct {
	transactionType string
	window          *RentalWindow
}

func PurchaseKind() TransactionKind {
	return TransactionKind{transactionType: TypePurchase}
}

func RentalKind(window RentalWindow) TransactionKind {
	return TransactionKind{transactionType: TypeRental, window: &window}
}

func (k TransactionKind) Type() string { return k.transactionType }

// Window returns the rental window and whether one exists (rentals only).
func (k TransactionKind) Window() (RentalWindow, bool) {
	if k.window == nil {
		return RentalWindow{}, false
	}
	return *k.window, true
}

// Payment statuses recorded alongside the escrow state, mirroring what the
// gateway reports.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
	PaymentStatusPartial  = "partial"
)

// Booking lifecycle statuses carried on the record for the booking screens.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingActive    = "active"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
	BookingExpired   = "expired"
)

// CancellationPolicy controls the refund fraction on a buyer cancellation.
type CancellationPolicy string

const (
	PolicyFlexible CancellationPolicy = "flexible"
	PolicyModerate CancellationPolicy = "moderate"
	PolicyStrict   CancellationPolicy = "strict"
)

// RefundFraction returns the share of the total refunded under the policy.
func (p CancellationPolicy) RefundFraction() float64 {
	switch p {
	case PolicyFlexible:
		return 1.0
	case PolicyModerate:
		return 0.5
	default:
		return 0.0
	}
}
