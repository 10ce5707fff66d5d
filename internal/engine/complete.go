package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/cadence/internal/adapters/repository"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/pkg/logger"
	"github.com/okian/cadence/pkg/metrics"
)

// Completion reports the effects of one CompleteTask call.
type Completion struct {
	Task           model.TaskRef
	UserID         int64
	PointsCredited bool

	// StreakAdvanced is true when a streak transition was written,
	// either an increment or a reset.
	StreakAdvanced bool
	Streak         *model.StreakRecord

	// StreakErr is the partial-success warning from the streak step.
	// The completion and any credited point stand regardless.
	StreakErr error

	// Badge is the milestone badge awarded by this completion, if any.
	Badge *model.Badge
}

// CompleteTask marks the task completed, credits its owner one point and
// advances the owner's streak, in that order.
//
// ErrTaskNotFound and ErrAlreadyCompleted are returned before any write.
// Once the task is marked, later steps never undo it: a streak failure is
// reported in Completion.StreakErr and a point-credit storage failure is
// returned as ErrInternal alongside the partial Completion.
func (e *Engine) CompleteTask(ctx context.Context, ref model.TaskRef) (Completion, error) {
	res := Completion{Task: ref}
	kind := string(ref.Kind)

	if !ref.Valid() {
		metrics.RecordCompletion(kind, metrics.OutcomeNotFound)
		return res, fmt.Errorf("complete task %s: %w", ref, ErrTaskNotFound)
	}

	task, err := e.store.Task(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordCompletion(kind, metrics.OutcomeNotFound)
		return res, fmt.Errorf("complete task %s: %w", ref, ErrTaskNotFound)
	}
	if err != nil {
		metrics.RecordCompletion(kind, metrics.OutcomeError)
		return res, fmt.Errorf("complete task %s: %w", ref, internal(err))
	}
	res.UserID = task.UserID
	if task.Completed {
		metrics.RecordCompletion(kind, metrics.OutcomeAlreadyCompleted)
		return res, fmt.Errorf("complete task %s: %w", ref, ErrAlreadyCompleted)
	}

	now := e.clock.Now()
	marked, err := e.store.MarkCompleted(ctx, ref, now)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.RecordCompletion(kind, metrics.OutcomeNotFound)
		return res, fmt.Errorf("complete task %s: %w", ref, ErrTaskNotFound)
	case err != nil:
		metrics.RecordCompletion(kind, metrics.OutcomeError)
		return res, fmt.Errorf("complete task %s: %w", ref, internal(err))
	case !marked:
		// Lost the race to a concurrent completion.
		metrics.RecordCompletion(kind, metrics.OutcomeAlreadyCompleted)
		return res, fmt.Errorf("complete task %s: %w", ref, ErrAlreadyCompleted)
	}
	metrics.RecordCompletion(kind, metrics.OutcomeCompleted)

	res.PointsCredited, err = e.CreditPoint(ctx, task.UserID)
	if err != nil {
		e.log.Error(ctx, "task completed but point credit failed",
			logger.String("task", ref.String()),
			logger.Int64("user_id", task.UserID),
			logger.Error(err))
		return res, fmt.Errorf("complete task %s: %w", ref, err)
	}

	rec, badge, err := e.advance(ctx, task.UserID, now)
	switch {
	case err == nil:
		res.StreakAdvanced = true
		res.Streak = &rec
		res.Badge = badge
	case errors.Is(err, ErrStreakAlreadyCurrent):
		res.StreakErr = err
		res.Streak = &rec
		e.log.Debug(ctx, "streak already current",
			logger.String("task", ref.String()),
			logger.Int64("user_id", task.UserID))
	default:
		res.StreakErr = err
		e.log.Warn(ctx, "task completed without streak update",
			logger.String("task", ref.String()),
			logger.Int64("user_id", task.UserID),
			logger.Error(err))
	}

	e.log.Info(ctx, "task completed",
		logger.String("task", ref.String()),
		logger.Int64("user_id", task.UserID),
		logger.Bool("points_credited", res.PointsCredited),
		logger.Bool("streak_advanced", res.StreakAdvanced))

	return res, nil
}
