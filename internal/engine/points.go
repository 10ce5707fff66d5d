package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/cadence/internal/adapters/repository"
	"github.com/okian/cadence/pkg/metrics"
)

// CreditPoint adds one point to the user. It returns false, without error,
// when no row was affected. Duplicate detection is the caller's job.
func (e *Engine) CreditPoint(ctx context.Context, userID int64) (bool, error) {
	ok, err := e.store.IncrementPoints(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("credit point to user %d: %w", userID, internal(err))
	}
	if ok {
		metrics.RecordPointCredited()
	}
	return ok, nil
}

// Points returns the user's current balance.
func (e *Engine) Points(ctx context.Context, userID int64) (int64, error) {
	u, err := e.store.User(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, fmt.Errorf("points of user %d: %w", userID, ErrUnknownUser)
	}
	if err != nil {
		return 0, fmt.Errorf("points of user %d: %w", userID, internal(err))
	}
	return u.Points, nil
}
