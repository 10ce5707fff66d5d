// Package sqlite is the durable repository.Store backed by modernc.org/sqlite.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Conditional writes (task completion, streak compare-and-swap) are single
// UPDATE statements, so they stay atomic across processes sharing the file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/cadence/internal/adapters/repository"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/pkg/logger"
	"github.com/okian/cadence/pkg/metrics"
)

const driverName = "sqlite"

const pragmas = "_pragma=journal_mode(WAL)" +
	"&_pragma=synchronous(NORMAL)" +
	"&_pragma=busy_timeout(5000)" +
	"&_pragma=foreign_keys(1)"

// Store implements repository.Store on a SQLite file.
type Store struct {
	db *sql.DB

	path           string
	connectRetries int
	log            logger.Logger
}

var _ repository.Store = (*Store)(nil)

// Open creates or opens the database at path, retrying the initial
// connection with exponential backoff, then applies embedded migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:           path,
		connectRetries: 5,
		log:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	s.db = db

	if err := migrateUp(ctx, s.dsn(), s.log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return s, nil
}

func (s *Store) dsn() string {
	return "file:" + s.path + "?" + pragmas
}

func (s *Store) connect(ctx context.Context) (*sql.DB, error) {
	var db *sql.DB
	op := func() error {
		conn, err := sql.Open(driverName, s.dsn())
		if err != nil {
			return backoff.Permanent(fmt.Errorf("open database: %w", err))
		}
		if err := conn.PingContext(ctx); err != nil {
			_ = conn.Close()
			return fmt.Errorf("connect to database: %w", err)
		}
		db = conn
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.connectRetries)),
		ctx,
	)
	err := backoff.RetryNotify(op, b, func(err error, d time.Duration) {
		s.log.Warn(ctx, "sqlite connect failed, retrying",
			logger.String("path", s.path),
			logger.Duration("backoff", d),
			logger.Error(err))
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the handle for diagnostics and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

func taskTable(kind model.TaskKind) (string, error) {
	switch kind {
	case model.KindHabit:
		return "habits", nil
	case model.KindDaily:
		return "dailies", nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", model.ErrInvalidTaskRef, kind)
	}
}

func toUnix(t time.Time) int64 { return t.Unix() }

func fromUnix(s int64) time.Time { return time.Unix(s, 0).UTC() }

// Task implements repository.TaskStore.
func (s *Store) Task(ctx context.Context, ref model.TaskRef) (model.Task, error) {
	defer observe("task", time.Now())

	table, err := taskTable(ref.Kind)
	if err != nil {
		return model.Task{}, err
	}

	var (
		t         = model.Task{Ref: ref}
		completed int
		lastDone  sql.NullInt64
		created   int64
	)
	query := "SELECT user_id, name, completed, created_at, NULL FROM habits WHERE id = ?"
	if table == "dailies" {
		query = "SELECT user_id, name, completed, created_at, last_completed_at FROM dailies WHERE id = ?"
	}
	err = s.db.QueryRowContext(ctx, query, ref.ID).Scan(&t.UserID, &t.Name, &completed, &created, &lastDone)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, fmt.Errorf("task %s: %w", ref, repository.ErrNotFound)
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("get task %s: %w", ref, err)
	}
	t.Completed = completed != 0
	t.CreatedAt = fromUnix(created)
	if lastDone.Valid {
		ts := fromUnix(lastDone.Int64)
		t.LastCompletedAt = &ts
	}
	return t, nil
}

// MarkCompleted implements repository.TaskStore.
func (s *Store) MarkCompleted(ctx context.Context, ref model.TaskRef, at time.Time) (bool, error) {
	defer observe("mark_completed", time.Now())

	table, err := taskTable(ref.Kind)
	if err != nil {
		return false, err
	}

	var res sql.Result
	if table == "dailies" {
		res, err = s.db.ExecContext(ctx,
			"UPDATE dailies SET completed = 1, last_completed_at = ? WHERE id = ? AND completed = 0",
			toUnix(at), ref.ID)
	} else {
		res, err = s.db.ExecContext(ctx,
			"UPDATE habits SET completed = 1 WHERE id = ? AND completed = 0",
			ref.ID)
	}
	if err != nil {
		return false, fmt.Errorf("complete task %s: %w", ref, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete task %s: %w", ref, err)
	}
	if n == 1 {
		return true, nil
	}

	// Nothing changed: either already completed or missing.
	var one int
	err = s.db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", ref.ID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("task %s: %w", ref, repository.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("complete task %s: %w", ref, err)
	}
	return false, nil
}

// CreateTask implements repository.TaskStore.
func (s *Store) CreateTask(ctx context.Context, kind model.TaskKind, userID int64, name string) (model.Task, error) {
	table, err := taskTable(kind)
	if err != nil {
		return model.Task{}, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO "+table+" (user_id, name, created_at) SELECT ?, ?, ? WHERE EXISTS (SELECT 1 FROM users WHERE id = ?)",
		userID, name, toUnix(now), userID)
	if err != nil {
		return model.Task{}, fmt.Errorf("create %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Task{}, fmt.Errorf("create %s: %w", kind, err)
	}
	if n == 0 {
		return model.Task{}, fmt.Errorf("user %d: %w", userID, repository.ErrNotFound)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Task{}, fmt.Errorf("create %s: %w", kind, err)
	}
	return model.Task{
		Ref:       model.TaskRef{Kind: kind, ID: id},
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
	}, nil
}

// User implements repository.UserStore.
func (s *Store) User(ctx context.Context, id int64) (model.User, error) {
	u := model.User{ID: id}
	err := s.db.QueryRowContext(ctx, "SELECT username, points FROM users WHERE id = ?", id).Scan(&u.Username, &u.Points)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("user %d: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// IncrementPoints implements repository.UserStore.
func (s *Store) IncrementPoints(ctx context.Context, id int64) (bool, error) {
	defer observe("increment_points", time.Now())

	res, err := s.db.ExecContext(ctx, "UPDATE users SET points = points + 1 WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("increment points for user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment points for user %d: %w", id, err)
	}
	return n == 1, nil
}

// CreateUser implements repository.UserStore.
func (s *Store) CreateUser(ctx context.Context, username string) (model.User, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username) VALUES (?) ON CONFLICT(username) DO NOTHING", username)
	if err != nil {
		return model.User{}, fmt.Errorf("create user %q: %w", username, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.User{}, fmt.Errorf("create user %q: %w", username, err)
	}
	if n == 0 {
		return model.User{}, fmt.Errorf("user %q: %w", username, repository.ErrExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("create user %q: %w", username, err)
	}
	return model.User{ID: id, Username: username}, nil
}

// Streak implements repository.StreakStore.
func (s *Store) Streak(ctx context.Context, userID int64) (model.StreakRecord, error) {
	defer observe("streak", time.Now())

	rec := model.StreakRecord{UserID: userID}
	var last int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, streak_count, last_updated FROM streaks WHERE user_id = ?", userID).
		Scan(&rec.ID, &rec.Count, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StreakRecord{}, fmt.Errorf("streak for user %d: %w", userID, repository.ErrNotFound)
	}
	if err != nil {
		return model.StreakRecord{}, fmt.Errorf("get streak for user %d: %w", userID, err)
	}
	rec.LastUpdated = fromUnix(last)
	return rec, nil
}

// CreateStreak implements repository.StreakStore.
func (s *Store) CreateStreak(ctx context.Context, userID int64, lastUpdated time.Time) (model.StreakRecord, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO streaks (user_id, streak_count, last_updated)
		 SELECT ?, 0, ? WHERE EXISTS (SELECT 1 FROM users WHERE id = ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		userID, toUnix(lastUpdated), userID)
	if err != nil {
		return model.StreakRecord{}, fmt.Errorf("create streak for user %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.StreakRecord{}, fmt.Errorf("create streak for user %d: %w", userID, err)
	}
	if n == 0 {
		if _, err := s.User(ctx, userID); err != nil {
			return model.StreakRecord{}, err
		}
		return model.StreakRecord{}, fmt.Errorf("streak for user %d: %w", userID, repository.ErrExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.StreakRecord{}, fmt.Errorf("create streak for user %d: %w", userID, err)
	}
	return model.StreakRecord{ID: id, UserID: userID, LastUpdated: fromUnix(toUnix(lastUpdated))}, nil
}

// UpdateStreak implements repository.StreakStore.
func (s *Store) UpdateStreak(ctx context.Context, userID int64, prev time.Time, count int, lastUpdated time.Time) (bool, error) {
	defer observe("update_streak", time.Now())

	res, err := s.db.ExecContext(ctx,
		"UPDATE streaks SET streak_count = ?, last_updated = ? WHERE user_id = ? AND last_updated = ?",
		count, toUnix(lastUpdated), userID, toUnix(prev))
	if err != nil {
		return false, fmt.Errorf("update streak for user %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update streak for user %d: %w", userID, err)
	}
	return n == 1, nil
}

// DeleteStreak implements repository.StreakStore.
func (s *Store) DeleteStreak(ctx context.Context, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM streaks WHERE user_id = ?", userID)
	if err != nil {
		return false, fmt.Errorf("delete streak for user %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete streak for user %d: %w", userID, err)
	}
	return n == 1, nil
}

// InsertBadge implements repository.BadgeStore.
func (s *Store) InsertBadge(ctx context.Context, b model.Badge) (model.Badge, error) {
	defer observe("insert_badge", time.Now())

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO badges (user_id, name, description, awarded_at)
		 SELECT ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM users WHERE id = ?)`,
		b.UserID, b.Name, b.Description, toUnix(b.AwardedAt), b.UserID)
	if err != nil {
		return model.Badge{}, fmt.Errorf("insert badge for user %d: %w", b.UserID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Badge{}, fmt.Errorf("insert badge for user %d: %w", b.UserID, err)
	}
	if n == 0 {
		return model.Badge{}, fmt.Errorf("user %d: %w", b.UserID, repository.ErrNotFound)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return model.Badge{}, fmt.Errorf("insert badge for user %d: %w", b.UserID, err)
	}
	return b, nil
}

// Badges implements repository.BadgeStore.
func (s *Store) Badges(ctx context.Context, userID int64) ([]model.Badge, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, awarded_at FROM badges WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("list badges for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []model.Badge
	for rows.Next() {
		b := model.Badge{UserID: userID}
		var awarded int64
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &awarded); err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		b.AwardedAt = fromUnix(awarded)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list badges for user %d: %w", userID, err)
	}
	return out, nil
}
