package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"brrowbooking/internal/db"
	"brrowbooking/internal/entities"
	apperrors "brrowbooking/internal/errors"
)

type TransactionRepository struct {
	DB *sql.DB
}

func NewTransactionRepository(database *sql.DB) *TransactionRepository {
	return &TransactionRepository{DB: database}
}

const transactionColumns = `id, listing_id, buyer_id, seller_id, type, amount_cents, currency,
	delivery_method, buyer_message, rental_start, rental_end, state, booking_status,
	payment_status, cancellation_policy, failure_reason, stripe_payment_intent_id,
	refunded_cents, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (*db.Transaction, error) {
	var t db.Transaction
	err := row.Scan(
		&t.ID, &t.ListingID, &t.BuyerID, &t.SellerID, &t.Type, &t.AmountCents, &t.Currency,
		&t.DeliveryMethod, &t.BuyerMessage, &t.RentalStart, &t.RentalEnd, &t.State, &t.BookingStatus,
		&t.PaymentStatus, &t.CancellationPolicy, &t.FailureReason, &t.StripePaymentIntentID,
		&t.RefundedCents, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) Create(t *db.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, listing_id, buyer_id, seller_id, type, amount_cents, currency, delivery_method,
		 buyer_message, rental_start, rental_end, state, booking_status, payment_status,
		 cancellation_policy, stripe_payment_intent_id, refunded_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING created_at, updated_at`
	return r.DB.QueryRow(query,
		t.ID, t.ListingID, t.BuyerID, t.SellerID, t.Type, t.AmountCents, t.Currency,
		t.DeliveryMethod, t.BuyerMessage, t.RentalStart, t.RentalEnd, t.State, t.BookingStatus,
		t.PaymentStatus, t.CancellationPolicy, t.StripePaymentIntentID, t.RefundedCents,
		time.Now().UTC(), time.Now().UTC(),
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TransactionRepository) GetByID(id string) (*db.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	t, err := scanTransaction(r.DB.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error querying transaction %s: %w", id, err)
	}
	return t, nil
}

// UpdateState moves a transaction from one state to another. The WHERE clause
// pins the expected current state, so a row already in a terminal or
// different state is never overwritten; that surfaces as ErrInvalidTransition.
func (r *TransactionRepository) UpdateState(id, from, to string) error {
	if err := entities.ValidateTransition(from, to); err != nil {
		return err
	}
	result, err := r.DB.Exec(
		`UPDATE transactions SET state = $3, updated_at = NOW() WHERE id = $1 AND state = $2`,
		id, from, to,
	)
	if err != nil {
		return fmt.Errorf("error updating transaction %s state: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrInvalidTransition
	}
	return nil
}

// SetFailure records a terminal failure together with the gateway's reason.
func (r *TransactionRepository) SetFailure(id, from, reason string) error {
	if err := entities.ValidateTransition(from, entities.StateFailed); err != nil {
		return err
	}
	result, err := r.DB.Exec(
		`UPDATE transactions SET state = $3, failure_reason = $4, updated_at = NOW()
		 WHERE id = $1 AND state = $2`,
		id, from, entities.StateFailed, reason,
	)
	if err != nil {
		return fmt.Errorf("error failing transaction %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrInvalidTransition
	}
	return nil
}

func (r *TransactionRepository) SetPaymentIntent(id, paymentIntentID string) error {
	_, err := r.DB.Exec(
		`UPDATE transactions SET stripe_payment_intent_id = $2, updated_at = NOW() WHERE id = $1`,
		id, paymentIntentID,
	)
	if err != nil {
		return fmt.Errorf("error storing payment intent for transaction %s: %w", id, err)
	}
	return nil
}

func (r *TransactionRepository) SetPaymentStatus(id, status string) error {
	_, err := r.DB.Exec(
		`UPDATE transactions SET payment_status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("error updating payment status for transaction %s: %w", id, err)
	}
	return nil
}

func (r *TransactionRepository) SetBookingStatus(id, status string) error {
	_, err := r.DB.Exec(
		`UPDATE transactions SET booking_status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("error updating booking status for transaction %s: %w", id, err)
	}
	return nil
}

// AddRefund accumulates a refund and sets the matching payment status.
func (r *TransactionRepository) AddRefund(id string, cents int64, paymentStatus string) error {
	_, err := r.DB.Exec(
		`UPDATE transactions
		 SET refunded_cents = refunded_cents + $2, payment_status = $3, updated_at = NOW()
		 WHERE id = $1`,
		id, cents, paymentStatus,
	)
	if err != nil {
		return fmt.Errorf("error recording refund for transaction %s: %w", id, err)
	}
	return nil
}

func (r *TransactionRepository) GetByPaymentIntentID(paymentIntentID string) (*db.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE stripe_payment_intent_id = $1`
	t, err := scanTransaction(r.DB.QueryRow(query, paymentIntentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction for intent %s: %w", paymentIntentID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error querying transaction by intent: %w", err)
	}
	return t, nil
}

// SupportResolve moves a confirmation_failed transaction to its human-decided
// outcome. This is the only write that steps outside the transition table:
// confirmation_failed has no automatic exits and is resolved by support staff
// after investigating the gateway's side.
func (r *TransactionRepository) SupportResolve(id, toState string) error {
	result, err := r.DB.Exec(
		`UPDATE transactions SET state = $2, updated_at = NOW() WHERE id = $1 AND state = $3`,
		id, toState, entities.StateConfirmationFailed,
	)
	if err != nil {
		return fmt.Errorf("error resolving transaction %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrInvalidTransition
	}
	return nil
}

// ListByState returns transactions in a state, optionally filtered by the day
// they were created. Used by the support queue.
func (r *TransactionRepository) ListByState(state, date string) ([]db.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE state = $1`
	args := []any{state}
	if date != "" {
		query += ` AND created_at::date = $2`
		args = append(args, date)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing transactions: %w", err)
	}
	defer rows.Close()

	var out []db.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning transaction row: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
