package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/cadence/internal/adapters/repository"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/streak"
	"github.com/okian/cadence/pkg/logger"
	"github.com/okian/cadence/pkg/metrics"
)

func streakLockKey(userID int64) string {
	return "streak:" + strconv.FormatInt(userID, 10)
}

// AdvanceStreak applies one day of activity at now to the user's streak.
// A record already updated for now's calendar day yields
// ErrStreakAlreadyCurrent together with the unchanged record. Reaching a
// milestone awards a badge; a failed award is logged and does not fail
// the call.
func (e *Engine) AdvanceStreak(ctx context.Context, userID int64, now time.Time) (model.StreakRecord, error) {
	rec, _, err := e.advance(ctx, userID, now)
	return rec, err
}

func (e *Engine) advance(ctx context.Context, userID int64, now time.Time) (model.StreakRecord, *model.Badge, error) {
	waitStart := time.Now()
	unlock, err := e.locker.Lock(ctx, streakLockKey(userID))
	metrics.RecordLockWait(float64(time.Since(waitStart).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordStreakTransition(metrics.StreakError)
		return model.StreakRecord{}, nil, fmt.Errorf("advance streak for user %d: lock: %w", userID, internal(err))
	}
	defer unlock()

	rec, err := e.store.Streak(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordStreakTransition(metrics.StreakMissing)
		return model.StreakRecord{}, nil, fmt.Errorf("advance streak for user %d: %w", userID, ErrNoStreakRecord)
	}
	if err != nil {
		metrics.RecordStreakTransition(metrics.StreakError)
		return model.StreakRecord{}, nil, fmt.Errorf("advance streak for user %d: %w", userID, internal(err))
	}

	tr, err := streak.Next(rec, now, e.loc)
	if errors.Is(err, streak.ErrAlreadyCurrent) {
		metrics.RecordStreakTransition(metrics.StreakAlreadyCurrent)
		return rec, nil, fmt.Errorf("advance streak for user %d: %w", userID, ErrStreakAlreadyCurrent)
	}

	ok, err := e.store.UpdateStreak(ctx, userID, rec.LastUpdated, tr.Count, tr.LastUpdated)
	if err != nil {
		metrics.RecordStreakTransition(metrics.StreakError)
		return rec, nil, fmt.Errorf("advance streak for user %d: %w", userID, internal(err))
	}
	if !ok {
		// Another writer moved last_updated after our read.
		metrics.RecordStreakTransition(metrics.StreakAlreadyCurrent)
		return rec, nil, fmt.Errorf("advance streak for user %d: %w", userID, ErrStreakAlreadyCurrent)
	}

	prevCount := rec.Count
	rec.Count = tr.Count
	rec.LastUpdated = tr.LastUpdated

	outcome := metrics.StreakAdvanced
	if tr.Outcome == streak.Reset {
		outcome = metrics.StreakReset
	}
	metrics.RecordStreakTransition(outcome)
	e.log.Debug(ctx, "streak updated",
		logger.Int64("user_id", userID),
		logger.String("outcome", tr.Outcome.String()),
		logger.Int("from", prevCount),
		logger.Int("to", rec.Count))

	if !streak.IsMilestone(rec.Count, e.milestoneInterval) {
		return rec, nil, nil
	}

	name := streak.MilestoneName(rec.Count)
	b, err := e.awardBadge(ctx, userID, name, streak.MilestoneDescription(rec.Count), now)
	if err != nil {
		// The streak write stands; a missing milestone badge is not fatal.
		metrics.RecordBadgeFailure()
		e.log.Warn(ctx, "milestone badge not awarded",
			logger.Int64("user_id", userID),
			logger.String("badge", name),
			logger.Error(err))
		return rec, nil, nil
	}
	return rec, &b, nil
}

// CreateStreak creates the user's streak at zero, dated today.
func (e *Engine) CreateStreak(ctx context.Context, userID int64) (model.StreakRecord, error) {
	today := streak.Midnight(e.clock.Now(), e.loc)
	rec, err := e.store.CreateStreak(ctx, userID, today)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return model.StreakRecord{}, fmt.Errorf("create streak for user %d: %w", userID, ErrUnknownUser)
	case errors.Is(err, repository.ErrExists):
		return model.StreakRecord{}, fmt.Errorf("create streak for user %d: %w", userID, ErrStreakExists)
	case err != nil:
		return model.StreakRecord{}, fmt.Errorf("create streak for user %d: %w", userID, internal(err))
	}
	return rec, nil
}

// Streak returns the user's streak record.
func (e *Engine) Streak(ctx context.Context, userID int64) (model.StreakRecord, error) {
	rec, err := e.store.Streak(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.StreakRecord{}, fmt.Errorf("streak of user %d: %w", userID, ErrNoStreakRecord)
	}
	if err != nil {
		return model.StreakRecord{}, fmt.Errorf("streak of user %d: %w", userID, internal(err))
	}
	return rec, nil
}

// DeleteStreak removes the user's streak. It reports whether one existed.
func (e *Engine) DeleteStreak(ctx context.Context, userID int64) (bool, error) {
	unlock, err := e.locker.Lock(ctx, streakLockKey(userID))
	if err != nil {
		return false, fmt.Errorf("delete streak for user %d: lock: %w", userID, internal(err))
	}
	defer unlock()

	deleted, err := e.store.DeleteStreak(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("delete streak for user %d: %w", userID, internal(err))
	}
	return deleted, nil
}
