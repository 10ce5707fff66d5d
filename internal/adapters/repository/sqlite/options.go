package sqlite

import "github.com/okian/cadence/pkg/logger"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithConnectRetries bounds the initial connection attempts.
func WithConnectRetries(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.connectRetries = n
		}
	}
}

// WithLogger sets the logger used for retry and migration messages.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}
