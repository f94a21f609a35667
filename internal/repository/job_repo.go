package repository

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"brrowbooking/internal/entities"
)

type JobRepository struct {
	DB *sql.DB
}

func NewJobRepository(database *sql.DB) *JobRepository {
	return &JobRepository{DB: database}
}

// StaleSubmission identifies a transaction stuck in a non-terminal state
// together with the lock key parts needed to free its submission.
type StaleSubmission struct {
	ID        string
	BuyerID   string
	ListingID string
}

// GetStaleInState returns transactions sitting in the given state longer than
// the cutoff.
func (r *JobRepository) GetStaleInState(state string, olderThanMinutes int) ([]StaleSubmission, error) {
	query := `SELECT id, buyer_id, listing_id FROM transactions
		WHERE state = $1 AND updated_at < NOW() - ($2 * interval '1 minute')`
	rows, err := r.DB.Query(query, state, olderThanMinutes)
	if err != nil {
		return nil, fmt.Errorf("error querying stale submissions: %w", err)
	}
	defer rows.Close()

	var out []StaleSubmission
	for rows.Next() {
		var s StaleSubmission
		if err := rows.Scan(&s.ID, &s.BuyerID, &s.ListingID); err != nil {
			return nil, fmt.Errorf("error scanning stale submission: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ExpireTransactions cancels a batch of stale submissions. The state filter
// keeps the update from touching rows that progressed in the meantime.
func (r *JobRepository) ExpireTransactions(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE transactions
		SET state = $1, booking_status = $2, updated_at = NOW()
		WHERE id = ANY($3) AND state = $4`
	_, err := r.DB.Exec(query, entities.StateCanceled, entities.BookingExpired,
		pq.Array(ids), entities.StateAwaitingPayment)
	if err != nil {
		return fmt.Errorf("error expiring transactions: %w", err)
	}
	return nil
}

// EscalateStalledCaptures moves captured-but-never-confirmed transactions
// into confirmation_failed so they surface in the support queue. The state
// filter keeps the update off rows the confirm path finished in the meantime.
func (r *JobRepository) EscalateStalledCaptures(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE transactions SET state = $1, updated_at = NOW()
		WHERE id = ANY($2) AND state = $3`
	_, err := r.DB.Exec(query, entities.StateConfirmationFailed, pq.Array(ids), entities.StatePaymentCaptured)
	if err != nil {
		return fmt.Errorf("error escalating stalled captures: %w", err)
	}
	return nil
}

// GetFinishedRentalIDs returns succeeded rentals whose window has ended but
// whose booking status is not yet completed.
func (r *JobRepository) GetFinishedRentalIDs() ([]string, error) {
	query := `SELECT id FROM transactions
		WHERE state = $1 AND type = $2 AND rental_end < NOW() AND booking_status <> $3`
	rows, err := r.DB.Query(query, entities.StateSucceeded, entities.TypeRental, entities.BookingCompleted)
	if err != nil {
		return nil, fmt.Errorf("error querying finished rentals: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning rental ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *JobRepository) UpdateBookingStatuses(ids []string, status string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE transactions SET booking_status = $1, updated_at = NOW() WHERE id = ANY($2)`
	_, err := r.DB.Exec(query, status, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("error updating booking statuses: %w", err)
	}
	return nil
}
