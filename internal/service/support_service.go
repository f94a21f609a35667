package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"brrowbooking/internal/db"
	"brrowbooking/internal/entities"
	apperrors "brrowbooking/internal/errors"
	"brrowbooking/internal/repository"
)

// Support resolution actions.
const (
	ResolveConfirm = "confirm"
	ResolveRefund  = "refund"
)

// SupportService is the human escalation path for transactions stuck in
// confirmation_failed: the charge went through but the record never
// confirmed, and no automatic retry is allowed to touch them.
type SupportService struct {
	transactions *repository.TransactionRepository
	gateway      PaymentGateway
	log          *logrus.Logger
}

func NewSupportService(transactions *repository.TransactionRepository, gateway PaymentGateway, log *logrus.Logger) *SupportService {
	return &SupportService{transactions: transactions, gateway: gateway, log: log}
}

// ListEscalations returns the support queue, optionally filtered by day.
func (s *SupportService) ListEscalations(date string) ([]db.Transaction, error) {
	return s.transactions.ListByState(entities.StateConfirmationFailed, date)
}

// ListTransactions lists transactions in any state for investigation.
func (s *SupportService) ListTransactions(state, date string) ([]db.Transaction, error) {
	if !validState(state) {
		return nil, apperrors.ErrValidation
	}
	return s.transactions.ListByState(state, date)
}

// Resolve settles one escalated transaction after a human has checked the
// gateway's side: confirm finishes the booking if the charge really
// succeeded, refund returns the money and closes the attempt.
func (s *SupportService) Resolve(ctx context.Context, transactionID, action string) (*db.Transaction, error) {
	tx, err := s.transactions.GetByID(transactionID)
	if err != nil {
		return nil, err
	}
	if tx.State != entities.StateConfirmationFailed {
		return nil, apperrors.ErrInvalidTransition
	}

	switch action {
	case ResolveConfirm:
		if err := s.gateway.Confirm(ctx, tx.StripePaymentIntentID.String); err != nil {
			return nil, fmt.Errorf("gateway still does not confirm %s: %w", transactionID, err)
		}
		if err := s.transactions.SupportResolve(tx.ID, entities.StateSucceeded); err != nil {
			return nil, err
		}
		if err := s.transactions.SetBookingStatus(tx.ID, entities.BookingConfirmed); err != nil {
			return nil, err
		}
		tx.State = entities.StateSucceeded
		tx.BookingStatus = entities.BookingConfirmed

	case ResolveRefund:
		if err := s.gateway.Refund(ctx, tx.StripePaymentIntentID.String, tx.AmountCents); err != nil {
			return nil, err
		}
		if err := s.transactions.AddRefund(tx.ID, tx.AmountCents, entities.PaymentStatusRefunded); err != nil {
			return nil, err
		}
		if err := s.transactions.SupportResolve(tx.ID, entities.StateFailed); err != nil {
			return nil, err
		}
		tx.State = entities.StateFailed
		tx.PaymentStatus = entities.PaymentStatusRefunded
		tx.RefundedCents = tx.AmountCents

	default:
		return nil, apperrors.ErrValidation
	}

	s.log.WithFields(logrus.Fields{
		"transaction_id": transactionID,
		"action":         action,
	}).Info("support resolution applied")
	return tx, nil
}

func validState(state string) bool {
	_, ok := entities.AllowedTransitions[state]
	return ok
}
