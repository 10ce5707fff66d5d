package service

import (
	"time"

	"github.com/okian/cadence/internal/adapters/lock"
	"github.com/okian/cadence/internal/adapters/repository"
	"github.com/okian/cadence/internal/config"
	"github.com/okian/cadence/internal/domain/clock"
	"github.com/okian/cadence/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the completion queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithPendingSize bounds the set of tasks waiting in the queue.
func WithPendingSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pendingSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects a ready store. Stop closes it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSQLite selects the sqlite store at path.
func WithSQLite(path string) Option {
	return func(s *Service) {
		s.storeDriver = StoreSQLite
		s.sqlitePath = path
	}
}

// WithConnectRetries bounds startup connection attempts to sqlite and redis.
func WithConnectRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.connectRetries = n
		}
	}
}

// WithLocker injects a ready streak lock.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithRedisLock selects the redis streak lock.
func WithRedisLock(addr, password string, db int, ttl time.Duration) Option {
	return func(s *Service) {
		s.lockDriver = LockRedis
		s.redisAddr = addr
		s.redisPassword = password
		s.redisDB = db
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithLocation sets the time zone that defines calendar days.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock sets the engine clock.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithMilestoneInterval awards a badge every n streak days.
func WithMilestoneInterval(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.milestoneInterval = n
		}
	}
}

// FromConfig translates a validated Config into options.
func FromConfig(cfg *config.Config) ([]Option, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithLocation(loc),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.EventQueueSize),
		WithPendingSize(cfg.PendingSize),
		WithMilestoneInterval(cfg.MilestoneInterval),
		WithConnectRetries(cfg.StoreConnectRetries),
	}
	if cfg.StoreDriver == config.StoreSQLite {
		opts = append(opts, WithSQLite(cfg.SQLitePath))
	}
	if cfg.LockDriver == config.LockRedis {
		opts = append(opts, WithRedisLock(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.LockTTL()))
	}
	return opts, nil
}
