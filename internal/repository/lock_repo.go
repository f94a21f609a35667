package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SubmissionLockRepository implements the per-booking-form in-flight flag as
// a Redis SETNX lock keyed by buyer and listing. The TTL is a backstop for a
// crashed submission; normal flows release on every terminal outcome.
type SubmissionLockRepository struct {
	Client *redis.Client
}

func NewSubmissionLockRepository(client *redis.Client) *SubmissionLockRepository {
	return &SubmissionLockRepository{Client: client}
}

func submissionKey(buyerID, listingID string) string {
	return fmt.Sprintf("submission:%s:%s", buyerID, listingID)
}

// Acquire returns false when a submission is already in flight for the pair.
func (r *SubmissionLockRepository) Acquire(ctx context.Context, buyerID, listingID string, ttl time.Duration) (bool, error) {
	ok, err := r.Client.SetNX(ctx, submissionKey(buyerID, listingID), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("error acquiring submission lock: %w", err)
	}
	return ok, nil
}

func (r *SubmissionLockRepository) Release(ctx context.Context, buyerID, listingID string) error {
	if err := r.Client.Del(ctx, submissionKey(buyerID, listingID)).Err(); err != nil {
		return fmt.Errorf("error releasing submission lock: %w", err)
	}
	return nil
}
