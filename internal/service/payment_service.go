package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"brrowbooking/internal/db"
	"brrowbooking/internal/entities"
	apperrors "brrowbooking/internal/errors"
)

// PaymentGateway is the contract the orchestrator requires of the payment
// processor. The production implementation is Stripe; tests substitute it.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, params GatewayIntentParams) (clientSecret, paymentIntentID string, err error)
	Confirm(ctx context.Context, paymentIntentID string) error
	Refund(ctx context.Context, paymentIntentID string, amountCents int64) error
}

// GatewayIntentParams carries everything the gateway needs to authorize the
// charge and route the seller's share to their connected account.
type GatewayIntentParams struct {
	AmountCents           int64
	Currency              string
	SellerStripeAccountID string
	ApplicationFeeCents   int64
	TransactionID         string
	Description           string
}

// SubmissionLocks is the shared in-flight flag per buyer/listing pair. Set
// before the first network call, cleared on every terminal outcome so the
// submit control never sticks disabled.
type SubmissionLocks interface {
	Acquire(ctx context.Context, buyerID, listingID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, buyerID, listingID string) error
}

// TransactionStore is the durable record behind the orchestrator.
// *repository.TransactionRepository satisfies it.
type TransactionStore interface {
	Create(tx *db.Transaction) error
	GetByID(id string) (*db.Transaction, error)
	GetByPaymentIntentID(paymentIntentID string) (*db.Transaction, error)
	UpdateState(id, from, to string) error
	SetFailure(id, from, reason string) error
	SetPaymentIntent(id, paymentIntentID string) error
	SetPaymentStatus(id, status string) error
	SetBookingStatus(id, status string) error
	AddRefund(id string, cents int64, paymentStatus string) error
	ListByState(state, date string) ([]db.Transaction, error)
}

// CreateIntentRequest is an accepted submission from the review step.
type CreateIntentRequest struct {
	ListingID          string
	BuyerID            string
	Kind               entities.TransactionKind
	DeliveryMethod     string
	BuyerMessage       string
	CancellationPolicy entities.CancellationPolicy
}

// PaymentService drives a submission from intent creation through capture
// and backend confirmation, advancing the transaction state machine at each
// step.
type PaymentService struct {
	gateway      PaymentGateway
	locks        SubmissionLocks
	transactions TransactionStore
	listings     ListingService
	pricing      *PricingService
	events       TransactionEvents

	lockTTL        time.Duration
	confirmTimeout time.Duration
	log            *logrus.Logger
}

func NewPaymentService(
	gateway PaymentGateway,
	locks SubmissionLocks,
	transactions TransactionStore,
	listings ListingService,
	pricing *PricingService,
	events TransactionEvents,
	log *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		gateway:        gateway,
		locks:          locks,
		transactions:   transactions,
		listings:       listings,
		pricing:        pricing,
		events:         events,
		lockTTL:        15 * time.Minute,
		confirmTimeout: 30 * time.Second,
		log:            log,
	}
}

// CreateIntent validates the submission, creates the transaction record in
// created, requests a gateway authorization and advances to awaiting_payment.
// A submission already in flight for the same buyer and listing is rejected,
// not queued: exactly one intent exists per accepted submission.
func (s *PaymentService) CreateIntent(ctx context.Context, req CreateIntentRequest) (*entities.PaymentIntent, error) {
	if req.ListingID == "" || req.BuyerID == "" || req.DeliveryMethod == "" {
		return nil, apperrors.ErrValidation
	}

	listing, err := s.listings.GetListing(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.priceSubmission(listing, req.Kind)
	if err != nil {
		return nil, err
	}

	acquired, err := s.locks.Acquire(ctx, req.BuyerID, req.ListingID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, apperrors.ErrSubmissionInFlight
	}

	tx := s.newTransaction(req, listing, breakdown)
	if err := s.transactions.Create(tx); err != nil {
		s.releaseLock(ctx, req.BuyerID, req.ListingID)
		return nil, err
	}

	clientSecret, intentID, err := s.gateway.CreateIntent(ctx, GatewayIntentParams{
		AmountCents:           breakdown.TotalCents,
		Currency:              tx.Currency,
		SellerStripeAccountID: listing.SellerStripeAccountID,
		ApplicationFeeCents:   breakdown.FeeTotal(),
		TransactionID:         tx.ID,
		Description:           "Brrow " + tx.Type + " of " + listing.Title,
	})
	if err != nil {
		// The transaction never reaches awaiting_payment on a rejected
		// intent; the buyer gets routed by error kind instead.
		if failErr := s.transactions.SetFailure(tx.ID, entities.StateCreated, err.Error()); failErr != nil {
			s.log.WithError(failErr).WithField("transaction_id", tx.ID).Error("could not fail transaction after intent rejection")
		}
		s.releaseLock(ctx, req.BuyerID, req.ListingID)
		return nil, err
	}

	if err := s.transactions.SetPaymentIntent(tx.ID, intentID); err != nil {
		s.releaseLock(ctx, req.BuyerID, req.ListingID)
		return nil, err
	}
	if err := s.transactions.UpdateState(tx.ID, entities.StateCreated, entities.StateAwaitingPayment); err != nil {
		s.releaseLock(ctx, req.BuyerID, req.ListingID)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"listing_id":     req.ListingID,
		"amount_cents":   breakdown.TotalCents,
	}).Info("payment intent created")

	return &entities.PaymentIntent{ClientSecret: clientSecret, TransactionID: tx.ID}, nil
}

// HandleCaptureResult maps the capture UI's exactly-one outcome into a state
// transition. Completed runs backend confirmation; canceled leaves the
// transaction reusable for a fresh intent; failed is terminal for this
// attempt with the gateway's reason stored verbatim.
func (s *PaymentService) HandleCaptureResult(ctx context.Context, transactionID string, result entities.CaptureResult) (*db.Transaction, error) {
	tx, err := s.transactions.GetByID(transactionID)
	if err != nil {
		return nil, err
	}

	if tx.State != entities.StateAwaitingPayment {
		// A capture report can arrive twice (client report plus webhook).
		// Replays of an already-recorded success are a no-op.
		if result.Outcome == entities.CaptureCompleted &&
			(tx.State == entities.StatePaymentCaptured || tx.State == entities.StateSucceeded) {
			return tx, nil
		}
		return nil, apperrors.ErrInvalidTransition
	}

	switch result.Outcome {
	case entities.CaptureCanceled:
		// Not an error: back to the review step, same transaction still in
		// awaiting_payment. A retry goes through a fresh intent.
		s.releaseLock(ctx, tx.BuyerID, tx.ListingID)
		return tx, nil

	case entities.CaptureFailed:
		if err := s.transactions.SetFailure(tx.ID, entities.StateAwaitingPayment, result.Reason); err != nil {
			return nil, err
		}
		s.releaseLock(ctx, tx.BuyerID, tx.ListingID)
		tx.State = entities.StateFailed
		tx.FailureReason = sql.NullString{String: result.Reason, Valid: true}
		s.events.TransactionFailed(*tx, result.Reason)
		// The gateway's reason travels to the caller typed and verbatim.
		return tx, &apperrors.CaptureFailedError{Reason: result.Reason}

	case entities.CaptureCompleted:
		return s.confirmCapture(ctx, tx)

	default:
		return nil, apperrors.ErrValidation
	}
}

// confirmCapture advances through payment_captured and reconciles with the
// backend. A confirm error lands in confirmation_failed: money has moved but
// the record is unconfirmed, so this is never retried automatically and goes
// to the support queue instead.
func (s *PaymentService) confirmCapture(ctx context.Context, tx *db.Transaction) (*db.Transaction, error) {
	if err := s.transactions.UpdateState(tx.ID, entities.StateAwaitingPayment, entities.StatePaymentCaptured); err != nil {
		return nil, err
	}
	tx.State = entities.StatePaymentCaptured
	if err := s.transactions.SetPaymentStatus(tx.ID, entities.PaymentStatusPaid); err != nil {
		s.log.WithError(err).WithField("transaction_id", tx.ID).Error("could not record paid status")
	}
	tx.PaymentStatus = entities.PaymentStatusPaid

	confirmCtx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()
	if err := s.gateway.Confirm(confirmCtx, tx.StripePaymentIntentID.String); err != nil {
		s.log.WithError(err).WithField("transaction_id", tx.ID).Error("backend confirmation failed after capture")
		if stErr := s.transactions.UpdateState(tx.ID, entities.StatePaymentCaptured, entities.StateConfirmationFailed); stErr != nil {
			return nil, stErr
		}
		s.releaseLock(ctx, tx.BuyerID, tx.ListingID)
		tx.State = entities.StateConfirmationFailed
		s.events.TransactionConfirmationFailed(*tx)
		return tx, apperrors.ErrConfirmationFailed
	}

	if err := s.transactions.UpdateState(tx.ID, entities.StatePaymentCaptured, entities.StateSucceeded); err != nil {
		return nil, err
	}
	if err := s.transactions.SetBookingStatus(tx.ID, entities.BookingConfirmed); err != nil {
		s.log.WithError(err).WithField("transaction_id", tx.ID).Error("could not confirm booking status")
	}
	s.releaseLock(ctx, tx.BuyerID, tx.ListingID)
	tx.State = entities.StateSucceeded
	tx.BookingStatus = entities.BookingConfirmed
	s.events.TransactionSucceeded(*tx)
	return tx, nil
}

// Cancel handles a buyer-initiated cancellation. Before capture it simply
// cancels the submission; after success it refunds per the cancellation
// policy through the gateway.
func (s *PaymentService) Cancel(ctx context.Context, transactionID string) (*db.Transaction, error) {
	tx, err := s.transactions.GetByID(transactionID)
	if err != nil {
		return nil, err
	}

	switch tx.State {
	case entities.StateAwaitingPayment:
		if err := s.transactions.UpdateState(tx.ID, entities.StateAwaitingPayment, entities.StateCanceled); err != nil {
			return nil, err
		}
		s.releaseLock(ctx, tx.BuyerID, tx.ListingID)
		tx.State = entities.StateCanceled
		return tx, nil

	case entities.StateSucceeded:
		fraction := entities.CancellationPolicy(tx.CancellationPolicy).RefundFraction()
		refund := int64(fraction * float64(tx.AmountCents))
		if refund > 0 {
			if err := s.gateway.Refund(ctx, tx.StripePaymentIntentID.String, refund); err != nil {
				return nil, err
			}
			status := entities.PaymentStatusPartial
			if refund == tx.AmountCents {
				status = entities.PaymentStatusRefunded
			}
			if err := s.transactions.AddRefund(tx.ID, refund, status); err != nil {
				return nil, err
			}
			tx.RefundedCents += refund
			tx.PaymentStatus = status
		}
		if err := s.transactions.SetBookingStatus(tx.ID, entities.BookingCancelled); err != nil {
			return nil, err
		}
		tx.BookingStatus = entities.BookingCancelled
		return tx, nil

	default:
		return nil, apperrors.ErrInvalidTransition
	}
}

// Get returns the transaction record.
func (s *PaymentService) Get(ctx context.Context, transactionID string) (*db.Transaction, error) {
	return s.transactions.GetByID(transactionID)
}

// ReconcileCaptureSucceeded is the webhook path for a capture the client
// never reported (app killed between capture and report). Idempotent with
// HandleCaptureResult through the state machine.
func (s *PaymentService) ReconcileCaptureSucceeded(ctx context.Context, paymentIntentID string) error {
	tx, err := s.transactions.GetByPaymentIntentID(paymentIntentID)
	if err != nil {
		return err
	}
	_, err = s.HandleCaptureResult(ctx, tx.ID, entities.CaptureResult{Outcome: entities.CaptureCompleted})
	if errors.Is(err, apperrors.ErrInvalidTransition) {
		return nil
	}
	return err
}

// ReconcileCaptureFailed records a gateway-reported capture failure. The
// typed failure outcome is the expected result here, not a webhook error.
func (s *PaymentService) ReconcileCaptureFailed(ctx context.Context, paymentIntentID, reason string) error {
	tx, err := s.transactions.GetByPaymentIntentID(paymentIntentID)
	if err != nil {
		return err
	}
	_, err = s.HandleCaptureResult(ctx, tx.ID, entities.CaptureResult{Outcome: entities.CaptureFailed, Reason: reason})
	var capErr *apperrors.CaptureFailedError
	if errors.Is(err, apperrors.ErrInvalidTransition) || errors.As(err, &capErr) {
		return nil
	}
	return err
}

// ReconcileRefund records a refund seen on the gateway side.
func (s *PaymentService) ReconcileRefund(ctx context.Context, paymentIntentID string, amountCents int64) error {
	tx, err := s.transactions.GetByPaymentIntentID(paymentIntentID)
	if err != nil {
		return err
	}
	status := entities.PaymentStatusPartial
	if tx.RefundedCents+amountCents >= tx.AmountCents {
		status = entities.PaymentStatusRefunded
	}
	return s.transactions.AddRefund(tx.ID, amountCents, status)
}

func (s *PaymentService) priceSubmission(listing *entities.Listing, kind entities.TransactionKind) (entities.PriceBreakdown, error) {
	switch kind.Type() {
	case entities.TypeRental:
		window, ok := kind.Window()
		if !ok {
			return entities.PriceBreakdown{}, apperrors.ErrValidation
		}
		req := entities.BookingRequest{
			ListingID:       listing.ID,
			StartDate:       window.Start,
			EndDate:         window.End,
			MinimumStayDays: listing.MinimumStayDays,
		}
		if err := req.Validate(); err != nil {
			return entities.PriceBreakdown{}, err
		}
		return Price(listing.DailyRateCents, window.Start, window.End, s.pricing.RentalFees()), nil
	case entities.TypePurchase:
		breakdown := PurchasePrice(listing.PriceCents, s.pricing.PurchaseFees())
		if breakdown.TotalCents <= 0 {
			return entities.PriceBreakdown{}, apperrors.ErrValidation
		}
		return breakdown, nil
	default:
		return entities.PriceBreakdown{}, apperrors.ErrValidation
	}
}

func (s *PaymentService) newTransaction(req CreateIntentRequest, listing *entities.Listing, breakdown entities.PriceBreakdown) *db.Transaction {
	tx := &db.Transaction{
		ID:                 uuid.NewString(),
		ListingID:          req.ListingID,
		BuyerID:            req.BuyerID,
		SellerID:           listing.SellerID,
		Type:               req.Kind.Type(),
		AmountCents:        breakdown.TotalCents,
		Currency:           "usd",
		DeliveryMethod:     req.DeliveryMethod,
		State:              entities.StateCreated,
		BookingStatus:      entities.BookingPending,
		PaymentStatus:      entities.PaymentStatusPending,
		CancellationPolicy: string(req.CancellationPolicy),
	}
	if req.BuyerMessage != "" {
		tx.BuyerMessage = sql.NullString{String: req.BuyerMessage, Valid: true}
	}
	if window, ok := req.Kind.Window(); ok {
		tx.RentalStart = sql.NullTime{Time: window.Start, Valid: true}
		tx.RentalEnd = sql.NullTime{Time: window.End, Valid: true}
	}
	return tx
}

func (s *PaymentService) releaseLock(ctx context.Context, buyerID, listingID string) {
	if err := s.locks.Release(ctx, buyerID, listingID); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"buyer_id":   buyerID,
			"listing_id": listingID,
		}).Error("could not release submission lock")
	}
}
