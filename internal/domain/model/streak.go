package model

import "time"

// StreakRecord is a user's run of consecutive active days.
// LastUpdated is always a calendar date: midnight in the engine's location.
type StreakRecord struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Count       int       `json:"streak_count"`
	LastUpdated time.Time `json:"last_updated"`
}
