package loadtest

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/cadence/pkg/logger"
)

// Run executes a complete load test against cfg.BaseURL.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	var stats Stats
	if err := cfg.validate(); err != nil {
		return stats, err
	}
	start := time.Now()
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	logger.Get().Info(ctx, "starting load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int64("user", cfg.UserID),
		logger.String("kind", string(cfg.Kind)),
		logger.Int64("firstID", cfg.FirstID),
		logger.Int64("lastID", cfg.LastID),
		logger.Int("repeat", cfg.Repeat),
		logger.Int("workers", cfg.Workers))

	if err := client.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	before, err := client.points(ctx, cfg.UserID)
	if err != nil {
		return stats, fmt.Errorf("read initial points: %w", err)
	}
	stats.PointsBefore = before

	submitAll(ctx, &cfg, client, &stats)

	after, err := settle(ctx, &cfg, client, before+int64(stats.DistinctTasks))
	stats.PointsAfter = after
	stats.Duration = time.Since(start)
	if err != nil {
		return stats, err
	}

	logger.Get().Info(ctx, "load test completed",
		logger.Int64("pointsBefore", stats.PointsBefore),
		logger.Int64("pointsAfter", stats.PointsAfter),
		logger.Duration("duration", stats.Duration))
	return stats, nil
}

// settle polls the user's points until they reach want or cfg.Settle elapses.
func settle(ctx context.Context, cfg *Config, client *httpClient, want int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Settle)
	defer cancel()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	var got int64
	for {
		pts, err := client.points(ctx, cfg.UserID)
		if err == nil {
			got = pts
			if got == want {
				return got, nil
			}
			if got > want {
				return got, fmt.Errorf("%w: got %d points, want %d", ErrMismatch, got, want)
			}
		}
		select {
		case <-ctx.Done():
			return got, fmt.Errorf("%w: got %d points, want %d after %s", ErrMismatch, got, want, cfg.Settle)
		case <-ticker.C:
		}
	}
}
