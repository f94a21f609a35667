package service

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/account"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"

	apperrors "brrowbooking/internal/errors"
)

// StripeGateway implements PaymentGateway against Stripe Connect. The charge
// is authorized on the platform account with the seller's connected account
// as the transfer destination; the fee lines stay with the platform as the
// application fee.
type StripeGateway struct{}

func NewStripeGateway() *StripeGateway {
	return &StripeGateway{}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, params GatewayIntentParams) (string, string, error) {
	if params.SellerStripeAccountID == "" {
		return "", "", apperrors.ErrSellerOnboardingRequired
	}
	acct, err := account.GetByID(params.SellerStripeAccountID, nil)
	if err != nil {
		return "", "", fmt.Errorf("error looking up seller account: %w", apperrors.ErrNetwork)
	}
	if !acct.ChargesEnabled || !acct.PayoutsEnabled {
		return "", "", apperrors.ErrSellerOnboardingRequired
	}

	piParams := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(params.AmountCents),
		Currency: stripe.String(params.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description:          stripe.String(params.Description),
		ApplicationFeeAmount: stripe.Int64(params.ApplicationFeeCents),
		TransferData: &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(params.SellerStripeAccountID),
		},
	}
	piParams.AddMetadata("transaction_id", params.TransactionID)

	pi, err := paymentintent.New(piParams)
	if err != nil {
		return "", "", fmt.Errorf("error creating payment intent: %w", apperrors.ErrNetwork)
	}
	return pi.ClientSecret, pi.ID, nil
}

// Confirm reconciles a client-reported capture against Stripe's record. The
// intent must actually have succeeded; anything else is a confirmation
// failure for the caller to classify.
func (g *StripeGateway) Confirm(ctx context.Context, paymentIntentID string) error {
	pi, err := paymentintent.Get(paymentIntentID, nil)
	if err != nil {
		return fmt.Errorf("error fetching payment intent %s: %w", paymentIntentID, apperrors.ErrNetwork)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("payment intent %s is %s, not succeeded", paymentIntentID, pi.Status)
	}
	return nil
}

func (g *StripeGateway) Refund(ctx context.Context, paymentIntentID string, amountCents int64) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(amountCents),
	}
	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("error refunding payment intent %s: %w", paymentIntentID, err)
	}
	return nil
}
