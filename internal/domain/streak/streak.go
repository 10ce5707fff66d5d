// Package streak holds the calendar-day arithmetic behind streak updates.
// Everything here is pure; persistence and locking live in the engine.
package streak

import (
	"errors"
	"strconv"
	"time"

	"github.com/okian/cadence/internal/domain/model"
)

// DefaultMilestoneInterval awards a badge every ten streak days.
const DefaultMilestoneInterval = 10

// ErrAlreadyCurrent means the streak was already updated for today.
var ErrAlreadyCurrent = errors.New("streak already updated today")

// Outcome describes how a streak changed.
type Outcome int

// Streak outcomes.
const (
	Advanced Outcome = iota + 1
	Reset
)

func (o Outcome) String() string {
	switch o {
	case Advanced:
		return "advanced"
	case Reset:
		return "reset"
	default:
		return "unknown"
	}
}

// Transition is the new state a record should move to.
type Transition struct {
	Count       int
	LastUpdated time.Time
	Outcome     Outcome
}

// Midnight truncates t to the start of its calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DaysBetween counts calendar days from from to to, both read in loc.
// Day lengths that differ across DST changes do not affect the result.
func DaysBetween(from, to time.Time, loc *time.Location) int {
	fy, fm, fd := from.In(loc).Date()
	ty, tm, td := to.In(loc).Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// Next computes the transition for rec at now. A record already updated
// today, or dated in the future, yields ErrAlreadyCurrent.
func Next(rec model.StreakRecord, now time.Time, loc *time.Location) (Transition, error) {
	days := DaysBetween(rec.LastUpdated, now, loc)
	switch {
	case days <= 0:
		return Transition{}, ErrAlreadyCurrent
	case days == 1:
		return Transition{Count: rec.Count + 1, LastUpdated: Midnight(now, loc), Outcome: Advanced}, nil
	default:
		return Transition{Count: 0, LastUpdated: Midnight(now, loc), Outcome: Reset}, nil
	}
}

// IsMilestone reports whether count earns a badge. Zero never does.
func IsMilestone(count, interval int) bool {
	if interval <= 0 {
		interval = DefaultMilestoneInterval
	}
	return count > 0 && count%interval == 0
}

// MilestoneName is the badge name for an n-day streak.
func MilestoneName(n int) string {
	return strconv.Itoa(n) + "-day streak"
}

// MilestoneDescription is the badge description for an n-day streak.
func MilestoneDescription(n int) string {
	return "Awarded for " + MilestoneName(n)
}
