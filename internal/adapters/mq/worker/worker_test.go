package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/cadence/internal/adapters/mq/queue"
	worker "github.com/okian/cadence/internal/adapters/mq/worker"
	model "github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/engine"
	logging "github.com/okian/cadence/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockCompleter struct {
	mu     sync.Mutex
	calls  []model.TaskRef
	errors map[model.TaskRef]error
	delay  time.Duration
}

func newMockCompleter() *mockCompleter {
	return &mockCompleter{errors: make(map[model.TaskRef]error)}
}

func (m *mockCompleter) CompleteTask(_ context.Context, ref model.TaskRef) (engine.Completion, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ref)
	if err, ok := m.errors[ref]; ok {
		return engine.Completion{Task: ref}, err
	}
	return engine.Completion{Task: ref, PointsCredited: true}, nil
}

func (m *mockCompleter) setError(ref model.TaskRef, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[ref] = err
}

func (m *mockCompleter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockReleaser struct {
	mu       sync.Mutex
	released []string
}

func (m *mockReleaser) Unrecord(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, key)
}

func (m *mockReleaser) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.released...)
}

func habit(id int64) model.TaskRef {
	return model.TaskRef{Kind: model.KindHabit, ID: id}
}

func completionEvent(id string, ref model.TaskRef) queue.Event {
	return model.CompletionEvent{EventID: id, Task: ref, ReceivedAt: time.Now()}
}

// waitFor polls cond for up to one second.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over a queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		completer := newMockCompleter()
		releaser := &mockReleaser{}

		w := worker.NewInMemoryWorker(q, completer,
			worker.WithName("test-worker"),
			worker.WithReleaser(releaser),
			worker.WithLogger(logging.Nop()),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When an event is processed", func() {
			convey.So(q.Enqueue(ctx, completionEvent("e1", habit(1))), convey.ShouldBeNil)

			convey.Convey("Then the task is completed and its key released", func() {
				convey.So(waitFor(func() bool { return len(releaser.keys()) == 1 }), convey.ShouldBeTrue)
				convey.So(completer.callCount(), convey.ShouldEqual, 1)
				convey.So(releaser.keys()[0], convey.ShouldEqual, "habit:1")
			})
		})

		convey.Convey("When the completion is rejected", func() {
			completer.setError(habit(2), engine.ErrAlreadyCompleted)
			convey.So(q.Enqueue(ctx, completionEvent("e2", habit(2))), convey.ShouldBeNil)

			convey.Convey("Then the key is still released", func() {
				convey.So(waitFor(func() bool { return len(releaser.keys()) == 1 }), convey.ShouldBeTrue)
				convey.So(releaser.keys()[0], convey.ShouldEqual, "habit:2")
			})
		})

		convey.Convey("When the completion fails internally", func() {
			completer.setError(habit(3), errors.New("disk gone"))
			convey.So(q.Enqueue(ctx, completionEvent("e3", habit(3))), convey.ShouldBeNil)

			convey.Convey("Then the worker keeps running", func() {
				convey.So(waitFor(func() bool { return len(releaser.keys()) == 1 }), convey.ShouldBeTrue)

				convey.So(q.Enqueue(ctx, completionEvent("e4", habit(4))), convey.ShouldBeNil)
				convey.So(waitFor(func() bool { return len(releaser.keys()) == 2 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer shutdownCancel()

			err := w.Shutdown(shutdownCtx)

			convey.Convey("Then it should stop gracefully", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a worker whose context is cancelled", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(1))
		w := worker.NewInMemoryWorker(q, newMockCompleter())
		ctx, cancel := context.WithCancel(context.Background())

		stopped := make(chan struct{})
		go func() {
			w.Run(ctx)
			close(stopped)
		}()
		cancel()

		convey.Convey("Then Run returns", func() {
			select {
			case <-stopped:
				convey.So(true, convey.ShouldBeTrue)
			case <-time.After(time.Second):
				convey.So("worker did not stop", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of four workers", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		completer := newMockCompleter()
		completer.delay = time.Millisecond
		completer.setError(habit(7), engine.ErrTaskNotFound)
		releaser := &mockReleaser{}

		pool := worker.NewPool(4, q, completer, worker.WithReleaser(releaser))
		convey.So(pool.Size(), convey.ShouldEqual, 4)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When events are queued and the pool shuts down", func() {
			for i := int64(1); i <= 20; i++ {
				convey.So(q.Enqueue(ctx, completionEvent("e", habit(i))), convey.ShouldBeNil)
			}

			err := pool.Shutdown(context.Background())

			convey.Convey("Then every buffered event is drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(completer.callCount(), convey.ShouldEqual, 20)
				convey.So(len(releaser.keys()), convey.ShouldEqual, 20)

				total, failed := pool.Processed()
				convey.So(total, convey.ShouldEqual, 20)
				convey.So(failed, convey.ShouldEqual, 1)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool with a non-positive worker count", t, func() {
		_ = logging.Init()
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), newMockCompleter())

		convey.Convey("Then it falls back to a CPU-based size", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
