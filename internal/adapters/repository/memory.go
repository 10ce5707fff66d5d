package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/pkg/metrics"
)

// MemoryStore is a mutex-guarded Store. Conditional writes are evaluated
// under the write lock, so MarkCompleted and UpdateStreak are atomic.
type MemoryStore struct {
	mu sync.RWMutex

	users     map[int64]model.User
	usernames map[string]int64
	tasks     map[model.TaskRef]model.Task
	streaks   map[int64]model.StreakRecord
	badges    map[int64][]model.Badge

	nextUserID   int64
	nextTaskID   map[model.TaskKind]int64
	nextStreakID int64
	nextBadgeID  int64

	recordLatency bool
	now           func() time.Time
	closed        bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		users:         make(map[int64]model.User),
		usernames:     make(map[string]int64),
		tasks:         make(map[model.TaskRef]model.Task),
		streaks:       make(map[int64]model.StreakRecord),
		badges:        make(map[int64][]model.Badge),
		nextTaskID:    make(map[model.TaskKind]int64),
		recordLatency: true,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *MemoryStore) observe(op string, start time.Time) {
	if s.recordLatency {
		metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	}
}

// Task implements TaskStore.
func (s *MemoryStore) Task(_ context.Context, ref model.TaskRef) (model.Task, error) {
	defer s.observe("task", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[ref]
	if !ok {
		return model.Task{}, fmt.Errorf("task %s: %w", ref, ErrNotFound)
	}
	return copyTask(t), nil
}

// MarkCompleted implements TaskStore.
func (s *MemoryStore) MarkCompleted(_ context.Context, ref model.TaskRef, at time.Time) (bool, error) {
	defer s.observe("mark_completed", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrClosed
	}
	t, ok := s.tasks[ref]
	if !ok {
		return false, fmt.Errorf("task %s: %w", ref, ErrNotFound)
	}
	if t.Completed {
		return false, nil
	}
	t.Completed = true
	if ref.Kind == model.KindDaily {
		ts := at
		t.LastCompletedAt = &ts
	}
	s.tasks[ref] = t
	return true, nil
}

// CreateTask implements TaskStore.
func (s *MemoryStore) CreateTask(_ context.Context, kind model.TaskKind, userID int64, name string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return model.Task{}, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	s.nextTaskID[kind]++
	t := model.Task{
		Ref:       model.TaskRef{Kind: kind, ID: s.nextTaskID[kind]},
		UserID:    userID,
		Name:      name,
		CreatedAt: s.now(),
	}
	s.tasks[t.Ref] = t
	return t, nil
}

// User implements UserStore.
func (s *MemoryStore) User(_ context.Context, id int64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, nil
}

// IncrementPoints implements UserStore.
func (s *MemoryStore) IncrementPoints(_ context.Context, id int64) (bool, error) {
	defer s.observe("increment_points", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrClosed
	}
	u, ok := s.users[id]
	if !ok {
		return false, nil
	}
	u.Points++
	s.users[id] = u
	return true, nil
}

// CreateUser implements UserStore.
func (s *MemoryStore) CreateUser(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usernames[username]; ok {
		return model.User{}, fmt.Errorf("user %q: %w", username, ErrExists)
	}
	s.nextUserID++
	u := model.User{ID: s.nextUserID, Username: username}
	s.users[u.ID] = u
	s.usernames[username] = u.ID
	return u, nil
}

// Streak implements StreakStore.
func (s *MemoryStore) Streak(_ context.Context, userID int64) (model.StreakRecord, error) {
	defer s.observe("streak", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.streaks[userID]
	if !ok {
		return model.StreakRecord{}, fmt.Errorf("streak for user %d: %w", userID, ErrNotFound)
	}
	return rec, nil
}

// CreateStreak implements StreakStore.
func (s *MemoryStore) CreateStreak(_ context.Context, userID int64, lastUpdated time.Time) (model.StreakRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return model.StreakRecord{}, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if _, ok := s.streaks[userID]; ok {
		return model.StreakRecord{}, fmt.Errorf("streak for user %d: %w", userID, ErrExists)
	}
	s.nextStreakID++
	rec := model.StreakRecord{ID: s.nextStreakID, UserID: userID, LastUpdated: lastUpdated}
	s.streaks[userID] = rec
	return rec, nil
}

// UpdateStreak implements StreakStore.
func (s *MemoryStore) UpdateStreak(_ context.Context, userID int64, prev time.Time, count int, lastUpdated time.Time) (bool, error) {
	defer s.observe("update_streak", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrClosed
	}
	rec, ok := s.streaks[userID]
	if !ok || !rec.LastUpdated.Equal(prev) {
		return false, nil
	}
	rec.Count = count
	rec.LastUpdated = lastUpdated
	s.streaks[userID] = rec
	return true, nil
}

// DeleteStreak implements StreakStore.
func (s *MemoryStore) DeleteStreak(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.streaks[userID]; !ok {
		return false, nil
	}
	delete(s.streaks, userID)
	return true, nil
}

// InsertBadge implements BadgeStore.
func (s *MemoryStore) InsertBadge(_ context.Context, b model.Badge) (model.Badge, error) {
	defer s.observe("insert_badge", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return model.Badge{}, ErrClosed
	}
	if _, ok := s.users[b.UserID]; !ok {
		return model.Badge{}, fmt.Errorf("user %d: %w", b.UserID, ErrNotFound)
	}
	s.nextBadgeID++
	b.ID = s.nextBadgeID
	s.badges[b.UserID] = append(s.badges[b.UserID], b)
	return b, nil
}

// Badges implements BadgeStore.
func (s *MemoryStore) Badges(_ context.Context, userID int64) ([]model.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Badge, len(s.badges[userID]))
	copy(out, s.badges[userID])
	return out, nil
}

// Close marks the store closed; further writes fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func copyTask(t model.Task) model.Task {
	if t.LastCompletedAt != nil {
		ts := *t.LastCompletedAt
		t.LastCompletedAt = &ts
	}
	return t
}
