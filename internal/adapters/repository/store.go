// Package repository defines the persistence interfaces used by the engine
// together with an in-memory implementation.
package repository

import (
	"context"
	"time"

	"github.com/okian/cadence/internal/domain/model"
)

// TaskStore reads and completes habits and dailies.
type TaskStore interface {
	// Task returns the task or ErrNotFound.
	Task(ctx context.Context, ref model.TaskRef) (model.Task, error)

	// MarkCompleted flips completed to true only if it is currently false.
	// Dailies also record at as their last completion time.
	// Returns false when the task was already completed, ErrNotFound when absent.
	MarkCompleted(ctx context.Context, ref model.TaskRef, at time.Time) (bool, error)

	// CreateTask seeds a task for an existing user.
	CreateTask(ctx context.Context, kind model.TaskKind, userID int64, name string) (model.Task, error)
}

// UserStore reads users and their points.
type UserStore interface {
	// User returns the user or ErrNotFound.
	User(ctx context.Context, id int64) (model.User, error)

	// IncrementPoints adds one point. Returns false when no row was affected.
	IncrementPoints(ctx context.Context, id int64) (bool, error)

	// CreateUser seeds a user. Returns ErrExists on a duplicate username.
	CreateUser(ctx context.Context, username string) (model.User, error)
}

// StreakStore holds at most one streak per user.
type StreakStore interface {
	// Streak returns the user's record or ErrNotFound.
	Streak(ctx context.Context, userID int64) (model.StreakRecord, error)

	// CreateStreak inserts a zero-count record. Returns ErrExists if the user
	// already has one and ErrNotFound if the user does not exist.
	CreateStreak(ctx context.Context, userID int64, lastUpdated time.Time) (model.StreakRecord, error)

	// UpdateStreak writes count and lastUpdated only if the stored
	// last_updated still equals prev. Returns false when it does not.
	UpdateStreak(ctx context.Context, userID int64, prev time.Time, count int, lastUpdated time.Time) (bool, error)

	// DeleteStreak removes the record. Returns false when there was none.
	DeleteStreak(ctx context.Context, userID int64) (bool, error)
}

// BadgeStore appends and lists badges.
type BadgeStore interface {
	// InsertBadge appends b and returns it with its id. ErrNotFound if the user is absent.
	InsertBadge(ctx context.Context, b model.Badge) (model.Badge, error)

	// Badges lists a user's badges in award order.
	Badges(ctx context.Context, userID int64) ([]model.Badge, error)
}

// Store is the full persistence surface.
type Store interface {
	TaskStore
	UserStore
	StreakStore
	BadgeStore

	Close() error
}
