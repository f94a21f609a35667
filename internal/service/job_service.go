package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"brrowbooking/internal/entities"
	"brrowbooking/internal/repository"
)

// JobStore is the batch maintenance surface of the transaction store.
// *repository.JobRepository satisfies it.
type JobStore interface {
	GetStaleInState(state string, olderThanMinutes int) ([]repository.StaleSubmission, error)
	ExpireTransactions(ids []string) error
	EscalateStalledCaptures(ids []string) error
	GetFinishedRentalIDs() ([]string, error)
	UpdateBookingStatuses(ids []string, status string) error
}

// JobService runs the cron maintenance passes: expiring submissions whose
// capture UI never reported back, escalating captures that never confirmed,
// and completing rentals whose window ended.
type JobService struct {
	Repo  JobStore
	locks SubmissionLocks
	log   *logrus.Logger
}

func NewJobService(repo JobStore, locks SubmissionLocks, log *logrus.Logger) *JobService {
	return &JobService{Repo: repo, locks: locks, log: log}
}

// ExpireStaleSubmissions cancels awaiting_payment transactions older than the
// cutoff and releases their submission locks so the buyer can try again.
func (s *JobService) ExpireStaleSubmissions(ctx context.Context, olderThanMinutes int) error {
	stale, err := s.Repo.GetStaleInState(entities.StateAwaitingPayment, olderThanMinutes)
	if err != nil {
		return fmt.Errorf("cron job: failed to get stale submissions: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	if err := s.Repo.ExpireTransactions(submissionIDs(stale)); err != nil {
		return fmt.Errorf("cron job: failed to expire transactions: %w", err)
	}
	s.releaseLocks(ctx, stale)

	s.log.WithField("count", len(stale)).Info("cron job: expired stale submissions")
	return nil
}

// EscalateStalledCaptures sweeps transactions stuck in payment_captured into
// confirmation_failed. A crash between the capture write and backend
// confirmation leaves the row there with money moved; the support queue is
// the only safe exit, never an automatic retry.
func (s *JobService) EscalateStalledCaptures(ctx context.Context, olderThanMinutes int) error {
	stale, err := s.Repo.GetStaleInState(entities.StatePaymentCaptured, olderThanMinutes)
	if err != nil {
		return fmt.Errorf("cron job: failed to get stalled captures: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	if err := s.Repo.EscalateStalledCaptures(submissionIDs(stale)); err != nil {
		return fmt.Errorf("cron job: failed to escalate stalled captures: %w", err)
	}
	s.releaseLocks(ctx, stale)

	s.log.WithField("count", len(stale)).Warn("cron job: escalated stalled captures to support queue")
	return nil
}

// CompleteFinishedRentals marks succeeded rentals past their window end as
// completed.
func (s *JobService) CompleteFinishedRentals() error {
	ids, err := s.Repo.GetFinishedRentalIDs()
	if err != nil {
		return fmt.Errorf("cron job: failed to get finished rentals: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.Repo.UpdateBookingStatuses(ids, entities.BookingCompleted); err != nil {
		return fmt.Errorf("cron job: failed to complete rentals: %w", err)
	}
	s.log.WithField("count", len(ids)).Info("cron job: completed finished rentals")
	return nil
}

func (s *JobService) releaseLocks(ctx context.Context, subs []repository.StaleSubmission) {
	for _, sub := range subs {
		if err := s.locks.Release(ctx, sub.BuyerID, sub.ListingID); err != nil {
			s.log.WithError(err).WithField("transaction_id", sub.ID).Error("cron job: could not release submission lock")
		}
	}
}

func submissionIDs(subs []repository.StaleSubmission) []string {
	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.ID)
	}
	return ids
}
