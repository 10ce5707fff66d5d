// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TaskKind distinguishes the two kinds of completable task.
type TaskKind string

// Task kinds.
const (
	KindHabit TaskKind = "habit"
	KindDaily TaskKind = "daily"
)

// ErrInvalidTaskRef is returned when a task reference cannot be parsed.
var ErrInvalidTaskRef = errors.New("invalid task reference")

// ParseTaskKind validates a kind name.
func ParseTaskKind(s string) (TaskKind, error) {
	switch TaskKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindHabit:
		return KindHabit, nil
	case KindDaily:
		return KindDaily, nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidTaskRef, s)
	}
}

// TaskRef identifies a habit or a daily. Habits and dailies are numbered
// independently, so the kind is part of the identity.
type TaskRef struct {
	Kind TaskKind `json:"kind"`
	ID   int64    `json:"id"`
}

// String renders the ref as "kind:id", the form accepted by ParseTaskRef.
func (r TaskRef) String() string {
	return string(r.Kind) + ":" + strconv.FormatInt(r.ID, 10)
}

// Valid reports whether the ref names a known kind and a positive id.
func (r TaskRef) Valid() bool {
	return (r.Kind == KindHabit || r.Kind == KindDaily) && r.ID > 0
}

// ParseTaskRef parses "kind:id".
func ParseTaskRef(s string) (TaskRef, error) {
	kindPart, idPart, ok := strings.Cut(s, ":")
	if !ok {
		return TaskRef{}, fmt.Errorf("%w: %q", ErrInvalidTaskRef, s)
	}
	return NewTaskRef(kindPart, idPart)
}

// NewTaskRef builds a ref from its textual parts.
func NewTaskRef(kind, id string) (TaskRef, error) {
	k, err := ParseTaskKind(kind)
	if err != nil {
		return TaskRef{}, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || n <= 0 {
		return TaskRef{}, fmt.Errorf("%w: bad id %q", ErrInvalidTaskRef, id)
	}
	return TaskRef{Kind: k, ID: n}, nil
}

// Task is a habit or daily owned by a user.
type Task struct {
	Ref             TaskRef    `json:"ref"`
	UserID          int64      `json:"user_id"`
	Name            string     `json:"name"`
	Completed       bool       `json:"completed"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"` // dailies only
	CreatedAt       time.Time  `json:"created_at"`
}
