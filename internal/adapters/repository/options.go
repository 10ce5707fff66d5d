package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithLatencyMetrics toggles per-operation latency recording.
func WithLatencyMetrics(enabled bool) Option {
	return func(s *MemoryStore) {
		s.recordLatency = enabled
	}
}

// WithNow sets the function used to stamp created_at on seeded rows.
func WithNow(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}
