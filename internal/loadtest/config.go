// Package loadtest drives a running cadence server with concurrent
// completion submissions and checks that every accepted task credited
// exactly one point.
package loadtest

import (
	"errors"
	"time"

	"github.com/okian/cadence/internal/domain/model"
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL  string         // Base URL of the service
	UserID   int64          // Owner of the tasks under test
	Kind     model.TaskKind // Kind of the tasks under test
	FirstID  int64          // First task id, inclusive
	LastID   int64          // Last task id, inclusive
	Repeat   int            // Submissions per task; >1 exercises duplicate suppression
	Workers  int            // Number of concurrent submitters
	Timeout  time.Duration  // HTTP request timeout
	Settle   time.Duration  // How long to wait for queued completions to apply
	Interval time.Duration  // Poll interval while settling
}

// ErrInvalidConfig is returned by Run for an unusable Config.
var ErrInvalidConfig = errors.New("invalid load test config")

// ErrMismatch is returned when the points credited differ from the
// number of distinct tasks accepted.
var ErrMismatch = errors.New("points mismatch")

func (c *Config) validate() error {
	switch {
	case c.BaseURL == "":
		return errors.Join(ErrInvalidConfig, errors.New("base url is required"))
	case c.UserID <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("user id must be positive"))
	case c.Kind != model.KindHabit && c.Kind != model.KindDaily:
		return errors.Join(ErrInvalidConfig, errors.New("kind must be habit or daily"))
	case c.FirstID <= 0 || c.LastID < c.FirstID:
		return errors.Join(ErrInvalidConfig, errors.New("task id range is empty"))
	}
	if c.Repeat <= 0 {
		c.Repeat = 1
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Settle <= 0 {
		c.Settle = defaultSettle
	}
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	Submitted     int           `json:"submitted"`
	Accepted      int           `json:"accepted"`
	Duplicate     int           `json:"duplicate"`
	Rejected      int           `json:"rejected"` // 404/409: unknown or already completed
	Failed        int           `json:"failed"`
	DistinctTasks int           `json:"distinct_tasks"` // tasks with at least one accepted submission
	PointsBefore  int64         `json:"points_before"`
	PointsAfter   int64         `json:"points_after"`
	Duration      time.Duration `json:"duration"`
}

// Runner configuration constants.
const (
	defaultWorkers  = 8
	defaultTimeout  = 10 * time.Second
	defaultSettle   = 30 * time.Second
	defaultInterval = 100 * time.Millisecond
)
