package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "brrowbooking/internal/errors"
)

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"validation", apperrors.ErrValidation, http.StatusUnprocessableEntity, "Invalid booking selection"},
		{"onboarding", apperrors.ErrSellerOnboardingRequired, http.StatusConflict, "The seller needs to complete their payment setup first"},
		{"in flight", apperrors.ErrSubmissionInFlight, http.StatusTooManyRequests, "A submission is already in progress"},
		{"confirmation failed", apperrors.ErrConfirmationFailed, http.StatusBadGateway, "Payment succeeded but confirmation failed. Please contact support."},
		{"capture failed reason verbatim", &apperrors.CaptureFailedError{Reason: "Your card was declined."}, http.StatusPaymentRequired, "Your card was declined."},
		{"network", apperrors.ErrNetwork, http.StatusServiceUnavailable, "Service temporarily unavailable"},
		{"unauthorized", apperrors.ErrUnauthorized("Invalid credentials"), http.StatusUnauthorized, "Invalid credentials"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tc.wantBody, body["error"])
		})
	}
}
