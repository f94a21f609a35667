package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brrowbooking/internal/db"
	"brrowbooking/internal/entities"
	apperrors "brrowbooking/internal/errors"
)

type fakeGateway struct {
	createCalls  int
	confirmCalls int
	createErr    error
	confirmErr   error
	refundErr    error
	refunds      []int64
	lastParams   GatewayIntentParams
}

func (g *fakeGateway) CreateIntent(ctx context.Context, params GatewayIntentParams) (string, string, error) {
	g.createCalls++
	g.lastParams = params
	if params.SellerStripeAccountID == "" {
		return "", "", apperrors.ErrSellerOnboardingRequired
	}
	if g.createErr != nil {
		return "", "", g.createErr
	}
	id := fmt.Sprintf("pi_%d", g.createCalls)
	return "cs_" + id, id, nil
}

func (g *fakeGateway) Confirm(ctx context.Context, paymentIntentID string) error {
	g.confirmCalls++
	return g.confirmErr
}

func (g *fakeGateway) Refund(ctx context.Context, paymentIntentID string, amountCents int64) error {
	if g.refundErr != nil {
		return g.refundErr
	}
	g.refunds = append(g.refunds, amountCents)
	return nil
}

type fakeLocks struct {
	held     map[string]bool
	releases int
}

func newFakeLocks() *fakeLocks { return &fakeLocks{held: map[string]bool{}} }

func (l *fakeLocks) key(buyerID, listingID string) string { return buyerID + ":" + listingID }

func (l *fakeLocks) Acquire(ctx context.Context, buyerID, listingID string, ttl time.Duration) (bool, error) {
	k := l.key(buyerID, listingID)
	if l.held[k] {
		return false, nil
	}
	l.held[k] = true
	return true, nil
}

func (l *fakeLocks) Release(ctx context.Context, buyerID, listingID string) error {
	delete(l.held, l.key(buyerID, listingID))
	l.releases++
	return nil
}

type fakeStore struct {
	byID map[string]*db.Transaction
}

func newFakeStore() *fakeStore { return &fakeStore{byID: map[string]*db.Transaction{}} }

func (s *fakeStore) Create(tx *db.Transaction) error {
	cp := *tx
	s.byID[tx.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(id string) (*db.Transaction, error) {
	tx, ok := s.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s *fakeStore) GetByPaymentIntentID(paymentIntentID string) (*db.Transaction, error) {
	for _, tx := range s.byID {
		if tx.StripePaymentIntentID.Valid && tx.StripePaymentIntentID.String == paymentIntentID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *fakeStore) UpdateState(id, from, to string) error {
	if err := entities.ValidateTransition(from, to); err != nil {
		return err
	}
	tx, ok := s.byID[id]
	if !ok || tx.State != from {
		return apperrors.ErrInvalidTransition
	}
	tx.State = to
	return nil
}

func (s *fakeStore) SetFailure(id, from, reason string) error {
	if err := s.UpdateState(id, from, entities.StateFailed); err != nil {
		return err
	}
	tx := s.byID[id]
	tx.FailureReason.String = reason
	tx.FailureReason.Valid = true
	return nil
}

func (s *fakeStore) SetPaymentIntent(id, paymentIntentID string) error {
	tx := s.byID[id]
	tx.StripePaymentIntentID.String = paymentIntentID
	tx.StripePaymentIntentID.Valid = true
	return nil
}

func (s *fakeStore) SetPaymentStatus(id, status string) error {
	s.byID[id].PaymentStatus = status
	return nil
}

func (s *fakeStore) SetBookingStatus(id, status string) error {
	s.byID[id].BookingStatus = status
	return nil
}

func (s *fakeStore) AddRefund(id string, cents int64, paymentStatus string) error {
	tx := s.byID[id]
	tx.RefundedCents += cents
	tx.PaymentStatus = paymentStatus
	return nil
}

func (s *fakeStore) ListByState(state, date string) ([]db.Transaction, error) {
	var out []db.Transaction
	for _, tx := range s.byID {
		if tx.State == state {
			out = append(out, *tx)
		}
	}
	return out, nil
}

type fakeEvents struct {
	succeeded          int
	failed             int
	confirmationFailed int
}

func (e *fakeEvents) TransactionSucceeded(tx db.Transaction)             { e.succeeded++ }
func (e *fakeEvents) TransactionFailed(tx db.Transaction, reason string) { e.failed++ }
func (e *fakeEvents) TransactionConfirmationFailed(tx db.Transaction)    { e.confirmationFailed++ }

type paymentFixture struct {
	svc     *PaymentService
	gateway *fakeGateway
	locks   *fakeLocks
	store   *fakeStore
	events  *fakeEvents
}

func newPaymentFixture(listing *entities.Listing) *paymentFixture {
	gateway := &fakeGateway{}
	locks := newFakeLocks()
	store := newFakeStore()
	events := &fakeEvents{}
	listings := &fakeListings{listing: listing}
	pricing := NewPricingService(listings, rentalFees, purchaseFees)

	log := logrus.New()
	log.SetOutput(io.Discard)

	return &paymentFixture{
		svc:     NewPaymentService(gateway, locks, store, listings, pricing, events, log),
		gateway: gateway,
		locks:   locks,
		store:   store,
		events:  events,
	}
}

func rentalListing() *entities.Listing {
	return &entities.Listing{
		ID:                    "lst_1",
		Title:                 "Cordless drill",
		SellerID:              "usr_seller",
		SellerStripeAccountID: "acct_123",
		DailyRateCents:        5000,
		PriceCents:            20000,
	}
}

func rentalRequest() CreateIntentRequest {
	return CreateIntentRequest{
		ListingID:      "lst_1",
		BuyerID:        "usr_buyer",
		Kind:           entities.RentalKind(entities.RentalWindow{Start: date("2025-06-01"), End: date("2025-06-04")}),
		DeliveryMethod: entities.DeliveryPickup,
	}
}

func TestCreateIntentHappyPath(t *testing.T) {
	f := newPaymentFixture(rentalListing())

	intent, err := f.svc.CreateIntent(context.Background(), rentalRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, intent.ClientSecret)

	tx, err := f.store.GetByID(intent.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, entities.StateAwaitingPayment, tx.State)
	assert.Equal(t, int64(16950), tx.AmountCents)
	assert.Equal(t, entities.TypeRental, tx.Type)
	assert.True(t, tx.RentalStart.Valid)

	// Gateway amounts mirror the breakdown: total charged, fees kept.
	assert.Equal(t, int64(16950), f.gateway.lastParams.AmountCents)
	assert.Equal(t, int64(1950), f.gateway.lastParams.ApplicationFeeCents)
	assert.Equal(t, "acct_123", f.gateway.lastParams.SellerStripeAccountID)
}

func TestCreateIntentRejectsDoubleSubmit(t *testing.T) {
	f := newPaymentFixture(rentalListing())

	_, err := f.svc.CreateIntent(context.Background(), rentalRequest())
	require.NoError(t, err)

	_, err = f.svc.CreateIntent(context.Background(), rentalRequest())
	assert.True(t, errors.Is(err, apperrors.ErrSubmissionInFlight))
	assert.Equal(t, 1, f.gateway.createCalls)
}

func TestCreateIntentSellerNotOnboarded(t *testing.T) {
	listing := rentalListing()
	listing.SellerStripeAccountID = ""
	f := newPaymentFixture(listing)

	_, err := f.svc.CreateIntent(context.Background(), rentalRequest())
	assert.True(t, errors.Is(err, apperrors.ErrSellerOnboardingRequired))

	// No transaction reaches awaiting_payment and the lock is freed, so the
	// buyer can resubmit after the seller finishes payout setup.
	awaiting, _ := f.store.ListByState(entities.StateAwaitingPayment, "")
	assert.Empty(t, awaiting)
	assert.Empty(t, f.locks.held)
	failed, _ := f.store.ListByState(entities.StateFailed, "")
	assert.Len(t, failed, 1)
}

func TestCreateIntentValidatesBeforeAnyNetworkCall(t *testing.T) {
	f := newPaymentFixture(rentalListing())

	req := rentalRequest()
	req.Kind = entities.RentalKind(entities.RentalWindow{Start: date("2025-06-04"), End: date("2025-06-01")})

	_, err := f.svc.CreateIntent(context.Background(), req)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Equal(t, 0, f.gateway.createCalls)
	assert.Empty(t, f.locks.held)
}

func TestCaptureCompletedConfirmsAndSucceeds(t *testing.T) {
	f := newPaymentFixture(rentalListing())
	intent, err := f.svc.CreateIntent(context.Background(), rentalRequest())
	require.NoError(t, err)

	tx, err := f.svc.HandleCaptureResult(context.Background(), intent.TransactionID, entities.CaptureResult{Outcome: entities.CaptureCompleted})
	require.NoError(t, err)
	assert.Equal(t, entities.StateSucceeded, tx.State)
	assert.Equal(t, entities.PaymentStatusPaid, tx.PaymentStatus)
	assert.Equal(t, entities.BookingConfirmed, tx.BookingStatus)
	assert.Empty(t, f.locks.held)
	assert.Equal(t, 1, f.events.succeeded)

	// A duplicate report (client plus webhook) is a no-op.
	replay, err := f.svc.HandleCaptureResult(context.Background(), intent.TransactionID, entities.CaptureResult{Outcome: entities.CaptureCompleted})
	require.NoError(t, err)
	assert.Equal(t, entities.StateSucceeded, replay.State)
	assert.Equal(t, 1, f.gateway.confirmCalls)
	assert.Equal(t, 1, f.events.succeeded)
}

func TestCaptureCanceledAllowsFreshIntent(t *testing.T) {
	f := newPaymentFixture(rentalListing())
	first, err := f.svc.CreateIntent(context.Background(), rentalRequest())
	require.NoError(t, err)

	_, err = f.svc.HandleCaptureResult(context.Background(), first.TransactionID, entities.CaptureResult{Outcome: entities.CaptureCanceled})
	require.NoError(t, err)
	assert.Empty(t, f.locks.held)

	second, err := f.svc.CreateIntent(context.Background(), rentalRequest())
	require.NoError(t, err)
	assert.NotEqual(t, first.TransactionID, second.TransactionID)
	assert.NotEqual(t, first.ClientSecret, second.ClientSecret)
	assert.Equal(t, 2, f.gateway.createCalls)
}

func TestCaptureFailedStoresReasonVerbatim(t *testing.T) {
	f := newPaymentFixture(rentalListing())
	intent, err := f.svc.CreateIntent(context.Background(), rentalRequest())
	require.NoError(t, err)

	tx, err := f.svc.HandleCaptureResult(context.Background(), intent.TransactionID, entities.CaptureResult{
		Outcome: entities.CaptureFailed,
		Reason:  "Your card was declined.",
	})
	var capErr *apperrors.CaptureFailedError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "Your card was declined.", capErr.Reason)
	require.NotNil(t, tx)
	assert.Equal(t, entities.StateFailed, tx.State)
	assert.Equal(t, "Your card was declined.", tx.FailureReason.String)
	assert.Empty(t, f.locks.held)
	assert.Equal(t, 1, f.events.failed)
	assert.True(t, entities.Retryable(tx.State))
}

func TestReconcileCaptureFailedSwallowsExpectedOutcomes(t *testing.T) {
	f := newPaymentFixture(rentalListing())
	intent, err := f.svc.CreateIntent(context.Background(), rentalRequest())
	require.NoError(t, err)
	stored, err := f.store.GetByID(intent.TransactionID)
	require.NoError(t, err)
	intentID := stored.StripePaymentIntentID.String

	// The typed failure outcome is the expected result of recording a
	// failure, and a replay on the now-terminal row is a no-op.
	require.NoError(t, f.svc.ReconcileCaptureFailed(context.Background(), intentID, "card declined"))
	require.NoError(t, f.svc.ReconcileCaptureFailed(context.Background(), intentID, "card declined"))

	final, err := f.store.GetByID(intent.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, entities.StateFailed, final.State)
	assert.Equal(t, "card declined", final.FailureReason.String)
	assert.Equal(t, 1, f.events.failed)
}

func TestConfirmFailureLandsInConfirmationFailed(t *testing.T) {
	f := newPaymentFixture(rentalListing())
	f.gateway.confirmErr = errors.New("record service timeout")

	intent, err := f.svc.CreateIntent(context.Background(), rentalRequest())
	require.NoError(t, err)

	tx, err := f.svc.HandleCaptureResult(context.Background(), intent.TransactionID, entities.CaptureResult{Outcome: entities.CaptureCompleted})
	assert.True(t, errors.Is(err, apperrors.ErrConfirmationFailed))
	require.NotNil(t, tx)
	assert.Equal(t, entities.StateConfirmationFailed, tx.State)
	assert.Equal(t, entities.PaymentStatusPaid, tx.PaymentStatus)
	assert.Empty(t, f.locks.held)
	assert.Equal(t, 1, f.events.confirmationFailed)

	// Charged but unconfirmed is not retryable; only the support path exits.
	assert.False(t, entities.Retryable(tx.State))
	stored, err := f.store.GetByID(intent.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, entities.StateConfirmationFailed, stored.State)
}

func TestHandleCaptureResultRejectsWrongState(t *testing.T) {
	f := newPaymentFixture(rentalListing())
	intent, err := f.svc.CreateIntent(context.Background(), rentalRequest())
	require.NoError(t, err)

	_, err = f.svc.HandleCaptureResult(context.Background(), intent.TransactionID, entities.CaptureResult{Outcome: entities.CaptureCompleted})
	require.NoError(t, err)

	// A late failure report for a succeeded transaction is rejected.
	_, err = f.svc.HandleCaptureResult(context.Background(), intent.TransactionID, entities.CaptureResult{Outcome: entities.CaptureFailed, Reason: "late"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
}

func TestCancelBeforeCapture(t *testing.T) {
	f := newPaymentFixture(rentalListing())
	intent, err := f.svc.CreateIntent(context.Background(), rentalRequest())
	require.NoError(t, err)

	tx, err := f.svc.Cancel(context.Background(), intent.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, entities.StateCanceled, tx.State)
	assert.Empty(t, f.locks.held)
	assert.Empty(t, f.gateway.refunds)
}

func TestCancelAfterSuccessRefundsPerPolicy(t *testing.T) {
	cases := []struct {
		policy     entities.CancellationPolicy
		wantRefund int64
		wantStatus string
	}{
		{entities.PolicyFlexible, 16950, entities.PaymentStatusRefunded},
		{entities.PolicyModerate, 8475, entities.PaymentStatusPartial},
		{entities.PolicyStrict, 0, entities.PaymentStatusPaid},
	}

	for _, tc := range cases {
		t.Run(string(tc.policy), func(t *testing.T) {
			f := newPaymentFixture(rentalListing())
			req := rentalRequest()
			req.CancellationPolicy = tc.policy

			intent, err := f.svc.CreateIntent(context.Background(), req)
			require.NoError(t, err)
			_, err = f.svc.HandleCaptureResult(context.Background(), intent.TransactionID, entities.CaptureResult{Outcome: entities.CaptureCompleted})
			require.NoError(t, err)

			tx, err := f.svc.Cancel(context.Background(), intent.TransactionID)
			require.NoError(t, err)
			assert.Equal(t, entities.BookingCancelled, tx.BookingStatus)
			assert.Equal(t, tc.wantRefund, tx.RefundedCents)
			assert.Equal(t, tc.wantStatus, tx.PaymentStatus)
			if tc.wantRefund > 0 {
				require.Len(t, f.gateway.refunds, 1)
				assert.Equal(t, tc.wantRefund, f.gateway.refunds[0])
			} else {
				assert.Empty(t, f.gateway.refunds)
			}
		})
	}
}

func TestReconcileCaptureSucceededIsIdempotent(t *testing.T) {
	f := newPaymentFixture(rentalListing())
	intent, err := f.svc.CreateIntent(context.Background(), rentalRequest())
	require.NoError(t, err)

	stored, err := f.store.GetByID(intent.TransactionID)
	require.NoError(t, err)
	intentID := stored.StripePaymentIntentID.String

	require.NoError(t, f.svc.ReconcileCaptureSucceeded(context.Background(), intentID))
	require.NoError(t, f.svc.ReconcileCaptureSucceeded(context.Background(), intentID))

	final, err := f.store.GetByID(intent.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, entities.StateSucceeded, final.State)
	assert.Equal(t, 1, f.gateway.confirmCalls)
	assert.Equal(t, 1, f.events.succeeded)
}

func TestReconcileRefundTracksPartialAndFull(t *testing.T) {
	f := newPaymentFixture(rentalListing())
	intent, err := f.svc.CreateIntent(context.Background(), rentalRequest())
	require.NoError(t, err)
	stored, err := f.store.GetByID(intent.TransactionID)
	require.NoError(t, err)
	intentID := stored.StripePaymentIntentID.String

	require.NoError(t, f.svc.ReconcileRefund(context.Background(), intentID, 5000))
	mid, _ := f.store.GetByID(intent.TransactionID)
	assert.Equal(t, entities.PaymentStatusPartial, mid.PaymentStatus)

	require.NoError(t, f.svc.ReconcileRefund(context.Background(), intentID, 11950))
	final, _ := f.store.GetByID(intent.TransactionID)
	assert.Equal(t, entities.PaymentStatusRefunded, final.PaymentStatus)
	assert.Equal(t, int64(16950), final.RefundedCents)
}
