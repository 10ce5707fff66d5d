// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and CADENCE_* env vars on top of the defaults.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"runtime"
	"time"
	_ "time/tzdata" // calendar days must not depend on host zoneinfo
)

// Store and lock driver names.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"

	LockLocal = "local"
	LockRedis = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFile mirrors logs into a rotating file when set.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// Timezone is the IANA zone that defines calendar days for streaks.
	Timezone string `koanf:"timezone" validate:"required"`

	// StoreDriver selects the persistence backend.
	StoreDriver string `koanf:"store_driver" validate:"oneof=memory sqlite"`

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `koanf:"sqlite_path" validate:"required_if=StoreDriver sqlite"`

	// StoreConnectRetries bounds startup connection attempts.
	StoreConnectRetries int `koanf:"store_connect_retries" validate:"min=0"`

	// LockDriver selects the per-user streak lock implementation.
	LockDriver string `koanf:"lock_driver" validate:"oneof=local redis"`

	// RedisAddr, RedisPassword and RedisDB configure the redis lock.
	RedisAddr     string `koanf:"redis_addr" validate:"required_if=LockDriver redis"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db" validate:"min=0"`

	// LockTTLMS is the redis lock lease in milliseconds.
	LockTTLMS int `koanf:"lock_ttl_ms" validate:"min=100"`

	// EventQueueSize bounds the in-memory completion queue.
	EventQueueSize int `koanf:"queue_size" validate:"min=1"`

	// WorkerCount sets the number of completion workers.
	WorkerCount int `koanf:"worker_count" validate:"min=1"`

	// PendingSize bounds the set of tasks waiting in the queue.
	PendingSize int `koanf:"pending_size" validate:"min=1"`

	// MilestoneInterval awards a badge every N streak days.
	MilestoneInterval int `koanf:"milestone_interval" validate:"min=1"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		Timezone:            "UTC",
		StoreDriver:         StoreMemory,
		SQLitePath:          "cadence.db",
		StoreConnectRetries: 5,
		LockDriver:          LockLocal,
		RedisAddr:           "localhost:6379",
		LockTTLMS:           5_000,
		EventQueueSize:      10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		PendingSize:         50_000,
		MilestoneInterval:   10,
	}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// LockTTL returns the redis lock lease as a duration.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMS) * time.Millisecond
}
