package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "brrowbooking/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps the error taxonomy to distinct statuses and messages so
// the client can render per-kind UI. The capture-failed reason is passed
// through verbatim; confirmation failures carry the support-contact wording
// rather than a generic failure.
func writeError(w http.ResponseWriter, err error) {
	status := apperrors.StatusCode(err)
	message := err.Error()

	var capErr *apperrors.CaptureFailedError
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		message = "Invalid booking selection"
	case errors.Is(err, apperrors.ErrSellerOnboardingRequired):
		message = "The seller needs to complete their payment setup first"
	case errors.Is(err, apperrors.ErrSubmissionInFlight):
		message = "A submission is already in progress"
	case errors.Is(err, apperrors.ErrConfirmationFailed):
		message = "Payment succeeded but confirmation failed. Please contact support."
	case errors.As(err, &capErr):
		message = capErr.Reason
	case errors.Is(err, apperrors.ErrNetwork):
		message = "Service temporarily unavailable"
	case status == http.StatusInternalServerError:
		message = "Internal error"
	}

	writeJSON(w, status, map[string]string{"error": message})
}
