package api

import (
	"time"

	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/engine"
)

const dateLayout = "2006-01-02"

type streakResponse struct {
	UserID      int64  `json:"user_id"`
	StreakCount int    `json:"streak_count"`
	LastUpdated string `json:"last_updated"`
}

func newStreakResponse(rec model.StreakRecord, loc *time.Location) streakResponse {
	return streakResponse{
		UserID:      rec.UserID,
		StreakCount: rec.Count,
		LastUpdated: rec.LastUpdated.In(loc).Format(dateLayout),
	}
}

type badgeResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	AwardedAt   time.Time `json:"awarded_at"`
}

func newBadgeResponse(b model.Badge) badgeResponse {
	return badgeResponse{
		ID:          b.ID,
		UserID:      b.UserID,
		Name:        b.Name,
		Description: b.Description,
		AwardedAt:   b.AwardedAt.UTC(),
	}
}

type completionResponse struct {
	Task           string          `json:"task"`
	UserID         int64           `json:"user_id"`
	PointsCredited bool            `json:"points_credited"`
	StreakAdvanced bool            `json:"streak_advanced"`
	Streak         *streakResponse `json:"streak,omitempty"`
	StreakWarning  string          `json:"streak_warning,omitempty"`
	Badge          *badgeResponse  `json:"badge,omitempty"`
}

func newCompletionResponse(c engine.Completion, loc *time.Location) completionResponse {
	resp := completionResponse{
		Task:           c.Task.String(),
		UserID:         c.UserID,
		PointsCredited: c.PointsCredited,
		StreakAdvanced: c.StreakAdvanced,
	}
	if c.Streak != nil {
		s := newStreakResponse(*c.Streak, loc)
		resp.Streak = &s
	}
	if c.StreakErr != nil {
		resp.StreakWarning = c.StreakErr.Error()
	}
	if c.Badge != nil {
		b := newBadgeResponse(*c.Badge)
		resp.Badge = &b
	}
	return resp
}

type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

type pointsResponse struct {
	UserID int64 `json:"user_id"`
	Points int64 `json:"points"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}
