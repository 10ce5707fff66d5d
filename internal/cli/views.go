package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/engine"
)

const dateLayout = "2006-01-02"

type userView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func (v userView) String() string {
	return fmt.Sprintf("user %d %s", v.ID, v.Username)
}

type taskView struct {
	Task   string `json:"task"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

func newTaskView(t model.Task) taskView {
	return taskView{Task: t.Ref.String(), UserID: t.UserID, Name: t.Name}
}

func (v taskView) String() string {
	return fmt.Sprintf("%s %q owned by user %d", v.Task, v.Name, v.UserID)
}

type streakView struct {
	UserID      int64  `json:"user_id"`
	StreakCount int    `json:"streak_count"`
	LastUpdated string `json:"last_updated"`
}

func newStreakView(rec model.StreakRecord, loc *time.Location) streakView {
	return streakView{
		UserID:      rec.UserID,
		StreakCount: rec.Count,
		LastUpdated: rec.LastUpdated.In(loc).Format(dateLayout),
	}
}

func (v streakView) String() string {
	return fmt.Sprintf("user %d: %d-day streak, last updated %s", v.UserID, v.StreakCount, v.LastUpdated)
}

type badgeView struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	AwardedAt   time.Time `json:"awarded_at"`
}

func newBadgeView(b model.Badge) badgeView {
	return badgeView{
		ID:          b.ID,
		UserID:      b.UserID,
		Name:        b.Name,
		Description: b.Description,
		AwardedAt:   b.AwardedAt.UTC(),
	}
}

func (v badgeView) String() string {
	if v.Description == "" {
		return fmt.Sprintf("#%d %s", v.ID, v.Name)
	}
	return fmt.Sprintf("#%d %s: %s", v.ID, v.Name, v.Description)
}

type badgeListView []badgeView

func (v badgeListView) String() string {
	if len(v) == 0 {
		return "no badges"
	}
	lines := make([]string, 0, len(v))
	for _, b := range v {
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

type pointsView struct {
	UserID int64 `json:"user_id"`
	Points int64 `json:"points"`
}

func (v pointsView) String() string {
	return fmt.Sprintf("user %d: %d points", v.UserID, v.Points)
}

type deleteView struct {
	UserID  int64 `json:"user_id"`
	Deleted bool  `json:"deleted"`
}

func (v deleteView) String() string {
	return fmt.Sprintf("user %d: streak deleted", v.UserID)
}

type completionView struct {
	Task           string      `json:"task"`
	UserID         int64       `json:"user_id"`
	PointsCredited bool        `json:"points_credited"`
	StreakAdvanced bool        `json:"streak_advanced"`
	Streak         *streakView `json:"streak,omitempty"`
	StreakWarning  string      `json:"streak_warning,omitempty"`
	Badge          *badgeView  `json:"badge,omitempty"`
}

func newCompletionView(c engine.Completion, loc *time.Location) completionView {
	v := completionView{
		Task:           c.Task.String(),
		UserID:         c.UserID,
		PointsCredited: c.PointsCredited,
		StreakAdvanced: c.StreakAdvanced,
	}
	if c.Streak != nil {
		s := newStreakView(*c.Streak, loc)
		v.Streak = &s
	}
	if c.StreakErr != nil {
		v.StreakWarning = c.StreakErr.Error()
	}
	if c.Badge != nil {
		b := newBadgeView(*c.Badge)
		v.Badge = &b
	}
	return v
}

func (v completionView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "completed %s for user %d", v.Task, v.UserID)
	if v.PointsCredited {
		b.WriteString("\n+1 point")
	}
	if v.Streak != nil {
		b.WriteString("\n" + v.Streak.String())
	}
	if v.StreakWarning != "" {
		b.WriteString("\nstreak unchanged: " + v.StreakWarning)
	}
	if v.Badge != nil {
		b.WriteString("\nbadge awarded: " + v.Badge.String())
	}
	return b.String()
}
