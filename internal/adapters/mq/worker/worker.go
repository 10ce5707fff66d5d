// Package worker drains the completion queue into the engine.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/engine"
	"github.com/okian/cadence/pkg/logger"
	"github.com/okian/cadence/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Event is what workers read off the queue.
type Event = model.CompletionEvent

// Completer applies one task completion.
type Completer interface {
	CompleteTask(ctx context.Context, ref model.TaskRef) (engine.Completion, error)
}

// Releaser forgets a pending task key once its event was handled.
type Releaser interface {
	Unrecord(ctx context.Context, key string)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue() <-chan Event
}

// Worker processes completion events.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current event.
	Shutdown(ctx context.Context) error
}

// counters are shared by every worker of a pool.
type counters struct {
	processed atomic.Int64
	failed    atomic.Int64
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	completer Completer
	releaser  Releaser
	name      string
	counters  *counters

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

var _ Worker = (*InMemoryWorker)(nil)

// NewInMemoryWorker creates a worker reading from queue.
func NewInMemoryWorker(queue Queue, completer Completer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		completer: completer,
		name:      "worker",
		counters:  &counters{},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop. Buffered events are drained after the
// queue is closed.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.counters.failed.Add(1)
			}
			w.counters.processed.Add(1)
		}
	}
}

// Shutdown stops the worker after the event in hand.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent completes one task and releases its pending key.
func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if w.releaser != nil {
		defer w.releaser.Unrecord(ctx, event.Task.String())
	}

	res, err := w.completer.CompleteTask(ctx, event.Task)
	switch {
	case err == nil:
		if res.StreakErr != nil && !errors.Is(res.StreakErr, engine.ErrStreakAlreadyCurrent) {
			w.logger.Warn(ctx, "completion applied with streak warning",
				logger.String("event_id", event.EventID),
				logger.String("task", event.Task.String()),
				logger.Error(res.StreakErr))
		}
		return nil
	case errors.Is(err, engine.ErrConflict), errors.Is(err, engine.ErrNotFound):
		w.logger.Info(ctx, "completion rejected",
			logger.String("event_id", event.EventID),
			logger.String("task", event.Task.String()),
			logger.Error(err))
		return err
	default:
		w.logger.Error(ctx, "completion failed",
			logger.String("event_id", event.EventID),
			logger.String("task", event.Task.String()),
			logger.Error(err))
		return fmt.Errorf("process event %s: %w", event.EventID, err)
	}
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	counters *counters

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. Options apply to every
// worker. A non-positive count falls back to twice the CPU count.
func NewPool(workerCount int, queue Queue, completer Completer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		counters: &counters{},
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(queue, completer,
			append(opts, WithName("worker-"+strconv.Itoa(i)))...)
		w.counters = pool.counters
		pool.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Processed returns how many events the pool handled, and how many of
// those were rejected or failed.
func (p *Pool) Processed() (total, failed int64) {
	return p.counters.processed.Load(), p.counters.failed.Load()
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("drain workers: %w", shutdownCtx.Err())
		}
	}

	metrics.UpdateWorkerCount(0)
	return nil
}
