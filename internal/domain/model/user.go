package model

// User is the owner of tasks, points, streaks and badges.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Points   int64  `json:"points"`
}
