package loadtest

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/pkg/logger"
)

type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeDuplicate
	outcomeRejected
	outcomeFailed
)

type submitRequest struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
}

type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// submitAll posts every task Repeat times across the worker pool.
func submitAll(ctx context.Context, cfg *Config, client *httpClient, stats *Stats) {
	var (
		submitted, accepted, duplicate, rejected, failed int64
		mu                                               sync.Mutex
		distinct                                         = make(map[int64]struct{})
	)

	jobs := make(chan model.TaskRef, cfg.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range jobs {
				atomic.AddInt64(&submitted, 1)
				switch submitOne(ctx, client, ref) {
				case outcomeAccepted:
					atomic.AddInt64(&accepted, 1)
					mu.Lock()
					distinct[ref.ID] = struct{}{}
					mu.Unlock()
				case outcomeDuplicate:
					atomic.AddInt64(&duplicate, 1)
				case outcomeRejected:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for r := 0; r < cfg.Repeat; r++ {
			for id := cfg.FirstID; id <= cfg.LastID; id++ {
				select {
				case <-ctx.Done():
					return
				case jobs <- model.TaskRef{Kind: cfg.Kind, ID: id}:
				}
			}
		}
	}()

	wg.Wait()

	stats.Submitted = int(submitted)
	stats.Accepted = int(accepted)
	stats.Duplicate = int(duplicate)
	stats.Rejected = int(rejected)
	stats.Failed = int(failed)
	stats.DistinctTasks = len(distinct)

	logger.Get().Info(ctx, "submission completed",
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed))
}

func submitOne(ctx context.Context, client *httpClient, ref model.TaskRef) outcome {
	var ack ackResponse
	status, err := client.post(ctx, "/completions", submitRequest{Kind: string(ref.Kind), ID: ref.ID}, &ack)
	if err != nil {
		logger.Get().Debug(ctx, "submission failed", logger.String("task", ref.String()), logger.Error(err))
		return outcomeFailed
	}
	switch status {
	case http.StatusAccepted:
		return outcomeAccepted
	case http.StatusOK:
		return outcomeDuplicate
	case http.StatusNotFound, http.StatusConflict:
		return outcomeRejected
	default:
		return outcomeFailed
	}
}
