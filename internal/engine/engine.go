// Package engine turns task completions into points, streak updates and
// milestone badges.
//
// Completions for different users run fully in parallel. The streak
// read-check-write for one user is serialized through a lock.Locker and
// committed with a compare-and-swap on last_updated, so two same-day
// completions advance a streak at most once even across processes.
package engine

import (
	"time"

	"github.com/okian/cadence/internal/adapters/lock"
	"github.com/okian/cadence/internal/adapters/repository"
	"github.com/okian/cadence/internal/domain/clock"
	"github.com/okian/cadence/internal/domain/streak"
	"github.com/okian/cadence/pkg/logger"
)

// Engine is the engagement engine. Construct once and share.
type Engine struct {
	store             repository.Store
	clock             clock.Clock
	loc               *time.Location
	locker            lock.Locker
	log               logger.Logger
	milestoneInterval int
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock sets the source of "now" used by CompleteTask and CreateStreak.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLocation sets the time zone that defines calendar days.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithLocker sets the per-user streak lock.
func WithLocker(l lock.Locker) Option {
	return func(e *Engine) {
		if l != nil {
			e.locker = l
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMilestoneInterval awards a badge every n streak days.
func WithMilestoneInterval(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.milestoneInterval = n
		}
	}
}

// New constructs an Engine over store.
func New(store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		store:             store,
		clock:             clock.System{},
		loc:               time.UTC,
		locker:            lock.NewKeyed(),
		log:               logger.Nop(),
		milestoneInterval: streak.DefaultMilestoneInterval,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Now returns the engine clock's current instant.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// Location returns the calendar time zone.
func (e *Engine) Location() *time.Location {
	return e.loc
}
