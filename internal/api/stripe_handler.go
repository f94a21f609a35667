package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"brrowbooking/internal/service"
)

// StripeWebhookHandler reconciles gateway-side events with the transaction
// record. The client reports capture outcomes itself; the webhook is the
// safety net for reports that never arrive, and both paths are idempotent
// through the state machine.
type StripeWebhookHandler struct {
	StripeSecret string
	payments     *service.PaymentService
	log          *logrus.Logger
}

func NewStripeWebhookHandler(stripeSecret string, payments *service.PaymentService, log *logrus.Logger) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		StripeSecret: stripeSecret,
		payments:     payments,
		log:          log,
	}
}

func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.WithError(err).Error("webhook: could not read body")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sigHeader, h.StripeSecret)
	if err != nil {
		h.log.WithError(err).Warn("webhook: signature verification failed")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			h.log.WithError(err).Error("webhook: could not parse payment_intent.succeeded")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := h.payments.ReconcileCaptureSucceeded(r.Context(), intent.ID); err != nil {
			h.log.WithError(err).WithField("payment_intent_id", intent.ID).Error("webhook: could not reconcile capture")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			h.log.WithError(err).Error("webhook: could not parse payment_intent.payment_failed")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		reason := "payment failed"
		if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
			reason = intent.LastPaymentError.Msg
		}
		if err := h.payments.ReconcileCaptureFailed(r.Context(), intent.ID, reason); err != nil {
			h.log.WithError(err).WithField("payment_intent_id", intent.ID).Error("webhook: could not reconcile failure")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			h.log.WithError(err).Error("webhook: could not parse charge.refunded")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if charge.PaymentIntent != nil && charge.PaymentIntent.ID != "" {
			if err := h.payments.ReconcileRefund(r.Context(), charge.PaymentIntent.ID, charge.AmountRefunded); err != nil {
				h.log.WithError(err).WithField("payment_intent_id", charge.PaymentIntent.ID).Error("webhook: could not record refund")
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
		}

	default:
		h.log.WithField("event_type", event.Type).Debug("webhook: unhandled event type")
	}

	w.WriteHeader(http.StatusOK)
}
