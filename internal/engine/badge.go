package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/cadence/internal/adapters/repository"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/pkg/metrics"
)

// AwardBadge appends a badge for the user. Badges with the same name are
// never merged.
func (e *Engine) AwardBadge(ctx context.Context, userID int64, name, description string) (model.Badge, error) {
	return e.awardBadge(ctx, userID, name, description, e.clock.Now())
}

func (e *Engine) awardBadge(ctx context.Context, userID int64, name, description string, at time.Time) (model.Badge, error) {
	b, err := e.store.InsertBadge(ctx, model.Badge{
		UserID:      userID,
		Name:        name,
		Description: description,
		AwardedAt:   at,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return model.Badge{}, fmt.Errorf("award badge %q to user %d: %w", name, userID, ErrUnknownUser)
	}
	if err != nil {
		return model.Badge{}, fmt.Errorf("award badge %q to user %d: %w", name, userID, internal(err))
	}
	metrics.RecordBadgeAwarded()
	return b, nil
}

// Badges lists the user's badges in award order.
func (e *Engine) Badges(ctx context.Context, userID int64) ([]model.Badge, error) {
	if _, err := e.store.User(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("badges of user %d: %w", userID, ErrUnknownUser)
		}
		return nil, fmt.Errorf("badges of user %d: %w", userID, internal(err))
	}
	list, err := e.store.Badges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("badges of user %d: %w", userID, internal(err))
	}
	return list, nil
}
