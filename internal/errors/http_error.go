package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTPError with the given code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

// Error kinds for the booking/payment flow. Handlers map each kind to a
// distinct HTTP status so the client can render per-kind UI (retry,
// payout-setup redirect, or the support-contact path).
var (
	// ErrValidation covers invalid date ranges and below-minimum-stay
	// selections. Resolved before any network call is made.
	ErrValidation = errors.New("validation failed")

	// ErrSellerOnboardingRequired means the seller has not completed payout
	// setup. The buyer must be routed to a pre-payment step, not a retry.
	ErrSellerOnboardingRequired = errors.New("seller onboarding required")

	// ErrNetwork covers transport and timeout failures against collaborators.
	ErrNetwork = errors.New("network error")

	// ErrSubmissionInFlight is returned when a second submit arrives while
	// one is already running for the same buyer and listing.
	ErrSubmissionInFlight = errors.New("submission already in flight")

	// ErrConfirmationFailed marks the charged-but-unconfirmed state. Never
	// retried automatically; the transaction goes to the support queue.
	ErrConfirmationFailed = errors.New("payment captured but confirmation failed")

	ErrInvalidTransition = errors.New("invalid transaction state transition")
	ErrNotFound          = errors.New("not found")
)

// CaptureFailedError carries the gateway's failure reason verbatim so the
// client can show it to the user unmodified.
type CaptureFailedError struct {
	Reason string
}

func (e *CaptureFailedError) Error() string {
	return fmt.Sprintf("payment capture failed: %s", e.Reason)
}

// StatusCode maps an error to the HTTP status the API layer responds with.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	var capErr *CaptureFailedError
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrSellerOnboardingRequired):
		return http.StatusConflict
	case errors.Is(err, ErrSubmissionInFlight):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrConfirmationFailed):
		// The charge went through; the record did not. Kept apart from
		// plain client errors.
		return http.StatusBadGateway
	case errors.As(err, &capErr):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrNetwork):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Helper for common errors
var (
	ErrUnauthorized = func(msg string) *HTTPError { return NewHTTPError(http.StatusUnauthorized, msg) }
)
