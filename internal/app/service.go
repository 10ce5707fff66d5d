// Package service wires the store, lock, engine and completion queue into
// the single object the HTTP API and CLI talk to.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/okian/cadence/internal/adapters/lock"
	eventqueue "github.com/okian/cadence/internal/adapters/mq/queue"
	workerpool "github.com/okian/cadence/internal/adapters/mq/worker"
	"github.com/okian/cadence/internal/adapters/repository"
	"github.com/okian/cadence/internal/adapters/repository/sqlite"
	"github.com/okian/cadence/internal/domain/clock"
	"github.com/okian/cadence/internal/domain/dedupe"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/engine"
	"github.com/okian/cadence/pkg/logger"
	"github.com/okian/cadence/pkg/metrics"
)

// Store and lock driver names.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	LockLocal   = "local"
	LockRedis   = "redis"
)

// Service errors.
var (
	ErrNotStarted = errors.New("service not started")
	ErrQueueFull  = eventqueue.ErrFull
)

// Service owns every runtime component. Construct with New, then Start.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	locker  lock.Locker
	redis   *redis.Client
	engine  *engine.Engine
	pending dedupe.Deduper
	queue   eventqueue.Queue
	pool    *workerpool.Pool

	// Configuration
	storeDriver       string
	sqlitePath        string
	connectRetries    int
	lockDriver        string
	redisAddr         string
	redisPassword     string
	redisDB           int
	lockTTL           time.Duration
	workerCount       int
	queueSize         int
	pendingSize       int
	milestoneInterval int
	loc               *time.Location
	clock             clock.Clock

	// State
	started    bool
	stopWorker context.CancelFunc

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeDriver:       StoreMemory,
		connectRetries:    5,
		lockDriver:        LockLocal,
		lockTTL:           5 * time.Second,
		workerCount:       runtime.NumCPU() * 2,
		queueSize:         10_000,
		pendingSize:       50_000,
		milestoneInterval: 10,
		loc:               time.UTC,
		clock:             clock.System{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds and starts the components. Calling it twice is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting cadence service...")

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
	}

	if s.locker == nil {
		locker, err := s.openLocker(ctx)
		if err != nil {
			_ = s.store.Close()
			s.store = nil
			return err
		}
		s.locker = locker
	}

	s.engine = engine.New(s.store,
		engine.WithClock(s.clock),
		engine.WithLocation(s.loc),
		engine.WithLocker(s.locker),
		engine.WithLogger(s.logger.Named("engine")),
		engine.WithMilestoneInterval(s.milestoneInterval),
	)

	s.pending = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.pendingSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.engine,
		workerpool.WithReleaser(s.pending),
		workerpool.WithLogger(s.logger.Named("worker")),
	)

	// Workers outlive the start context; Stop cancels them after draining.
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.stopWorker = cancel
	s.pool.Start(workerCtx)

	s.started = true
	s.logger.Info(ctx, "cadence service started",
		logger.String("store", s.storeDriver),
		logger.String("lock", s.lockDriver),
		logger.String("timezone", s.loc.String()),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("pendingSize", s.pendingSize),
	)

	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.storeDriver {
	case StoreSQLite:
		store, err := sqlite.Open(ctx, s.sqlitePath,
			sqlite.WithConnectRetries(s.connectRetries),
			sqlite.WithLogger(s.logger.Named("sqlite")),
		)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.sqlitePath))
		return store, nil
	case StoreMemory, "":
		s.logger.Info(ctx, "using in-memory store")
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", s.storeDriver)
	}
}

func (s *Service) openLocker(ctx context.Context) (lock.Locker, error) {
	switch s.lockDriver {
	case LockRedis:
		client, err := lock.DialRedis(ctx, s.redisAddr, s.redisPassword, s.redisDB, s.connectRetries, s.logger)
		if err != nil {
			return nil, fmt.Errorf("open redis lock: %w", err)
		}
		s.redis = client
		s.logger.Info(ctx, "using redis lock", logger.String("addr", s.redisAddr))
		return lock.NewRedis(client,
			lock.WithTTL(s.lockTTL),
			lock.WithLogger(s.logger.Named("lock")),
		), nil
	case LockLocal, "":
		return lock.NewKeyed(), nil
	default:
		return nil, fmt.Errorf("unknown lock driver %q", s.lockDriver)
	}
}

// Stop drains the queue, then releases the store and lock backends.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping cadence service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.stopWorker()

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		s.redis = nil
		s.locker = nil
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	s.store = nil

	s.started = false
	s.logger.Info(ctx, "cadence service stopped")

	return errors.Join(errs...)
}

func (s *Service) running() (*engine.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.engine, nil
}

// Submit queues ref for asynchronous completion and returns the event id.
// A task already waiting in the queue is reported as a duplicate and not
// queued again. Unknown or completed tasks are rejected up front.
func (s *Service) Submit(ctx context.Context, ref model.TaskRef) (eventID string, duplicate bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return "", false, ErrNotStarted
	}
	if !ref.Valid() {
		return "", false, fmt.Errorf("submit %s: %w", ref, engine.ErrTaskNotFound)
	}

	task, err := s.store.Task(ctx, ref)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return "", false, fmt.Errorf("submit %s: %w", ref, engine.ErrTaskNotFound)
	case err != nil:
		return "", false, fmt.Errorf("submit %s: %w: %w", ref, engine.ErrInternal, err)
	case task.Completed:
		return "", false, fmt.Errorf("submit %s: %w", ref, engine.ErrAlreadyCompleted)
	}

	key := ref.String()
	if s.pending.SeenAndRecord(ctx, key) {
		metrics.RecordPendingDuplicate()
		s.logger.Debug(ctx, "task already pending", logger.String("task", key))
		return "", true, nil
	}

	event := model.CompletionEvent{
		EventID:    uuid.NewString(),
		Task:       ref,
		ReceivedAt: s.clock.Now(),
	}
	if err := s.queue.Enqueue(ctx, event); err != nil {
		s.pending.Unrecord(ctx, key)
		return "", false, fmt.Errorf("submit %s: %w", ref, err)
	}

	s.logger.Debug(ctx, "completion queued",
		logger.String("event_id", event.EventID),
		logger.String("task", key))
	return event.EventID, false, nil
}

// CompleteTask completes ref synchronously.
func (s *Service) CompleteTask(ctx context.Context, ref model.TaskRef) (engine.Completion, error) {
	eng, err := s.running()
	if err != nil {
		return engine.Completion{Task: ref}, err
	}
	return eng.CompleteTask(ctx, ref)
}

// AdvanceStreak advances the user's streak at the engine clock's now.
func (s *Service) AdvanceStreak(ctx context.Context, userID int64) (model.StreakRecord, error) {
	eng, err := s.running()
	if err != nil {
		return model.StreakRecord{}, err
	}
	return eng.AdvanceStreak(ctx, userID, eng.Now())
}

// CreateStreak creates the user's streak.
func (s *Service) CreateStreak(ctx context.Context, userID int64) (model.StreakRecord, error) {
	eng, err := s.running()
	if err != nil {
		return model.StreakRecord{}, err
	}
	return eng.CreateStreak(ctx, userID)
}

// Streak returns the user's streak.
func (s *Service) Streak(ctx context.Context, userID int64) (model.StreakRecord, error) {
	eng, err := s.running()
	if err != nil {
		return model.StreakRecord{}, err
	}
	return eng.Streak(ctx, userID)
}

// DeleteStreak deletes the user's streak.
func (s *Service) DeleteStreak(ctx context.Context, userID int64) (bool, error) {
	eng, err := s.running()
	if err != nil {
		return false, err
	}
	return eng.DeleteStreak(ctx, userID)
}

// AwardBadge awards a badge to the user.
func (s *Service) AwardBadge(ctx context.Context, userID int64, name, description string) (model.Badge, error) {
	eng, err := s.running()
	if err != nil {
		return model.Badge{}, err
	}
	return eng.AwardBadge(ctx, userID, name, description)
}

// Badges lists the user's badges.
func (s *Service) Badges(ctx context.Context, userID int64) ([]model.Badge, error) {
	eng, err := s.running()
	if err != nil {
		return nil, err
	}
	return eng.Badges(ctx, userID)
}

// Points returns the user's points.
func (s *Service) Points(ctx context.Context, userID int64) (int64, error) {
	eng, err := s.running()
	if err != nil {
		return 0, err
	}
	return eng.Points(ctx, userID)
}

// SeedUser creates a user. A taken username is an engine.ErrConflict.
func (s *Service) SeedUser(ctx context.Context, username string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.User{}, ErrNotStarted
	}

	u, err := s.store.CreateUser(ctx, username)
	switch {
	case errors.Is(err, repository.ErrExists):
		return model.User{}, fmt.Errorf("seed user %q: %w: username taken", username, engine.ErrConflict)
	case err != nil:
		return model.User{}, fmt.Errorf("seed user %q: %w: %w", username, engine.ErrInternal, err)
	}
	return u, nil
}

// SeedTask creates a habit or daily for the user.
func (s *Service) SeedTask(ctx context.Context, kind model.TaskKind, userID int64, name string) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Task{}, ErrNotStarted
	}

	t, err := s.store.CreateTask(ctx, kind, userID, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return model.Task{}, fmt.Errorf("seed %s for user %d: %w", kind, userID, engine.ErrUnknownUser)
	case err != nil:
		return model.Task{}, fmt.Errorf("seed %s for user %d: %w: %w", kind, userID, engine.ErrInternal, err)
	}
	return t, nil
}

// Stats is a point-in-time view of the service for monitoring.
type Stats struct {
	Started        bool   `json:"started"`
	Store          string `json:"store"`
	Lock           string `json:"lock"`
	Timezone       string `json:"timezone"`
	Workers        int    `json:"workers"`
	QueueLength    int    `json:"queueLength"`
	QueueCapacity  int    `json:"queueCapacity"`
	Pending        int64  `json:"pending"`
	PendingEvicted int64  `json:"pendingEvicted"`
	Processed      int64  `json:"processed"`
	Failed         int64  `json:"failed"`
}

// GetStats returns service statistics.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Started:       s.started,
		Store:         s.storeDriver,
		Lock:          s.lockDriver,
		Timezone:      s.loc.String(),
		Workers:       s.workerCount,
		QueueCapacity: s.queueSize,
	}

	if s.started {
		stats.Workers = s.pool.Size()
		stats.QueueLength = s.queue.Len()
		stats.Pending = s.pending.Size()
		stats.PendingEvicted = dedupe.Evicted(s.pending)
		stats.Processed, stats.Failed = s.pool.Processed()
	}

	return stats
}

// Now returns the engine clock's current instant.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// Location returns the time zone that defines calendar days.
func (s *Service) Location() *time.Location {
	return s.loc
}
