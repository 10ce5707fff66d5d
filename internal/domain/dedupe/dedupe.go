// Package dedupe tracks tasks that are waiting in the completion queue so the
// same task is not queued twice before a worker gets to it.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records pending keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key is pending and records it if not.
	// Returns true if key was already pending, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord releases key once its event is processed or could not be queued.
	Unrecord(ctx context.Context, key string)

	// Contains reports whether key is pending.
	Contains(ctx context.Context, key string) bool

	Size() int64
}

// node is an entry in the insertion-ordered list.
type node struct {
	key        string
	prev, next *node
}

func (n *node) reset() {
	n.key = ""
	n.prev = nil
	n.next = nil
}

// inMemoryDeduper keeps pending keys in a map plus a doubly linked list
// ordered by insertion. When bounded and full, the oldest key is evicted.
// An evicted key only loses queue-level deduplication; the engine's
// completed flag still rejects a second completion.
type inMemoryDeduper struct {
	mu       sync.Mutex
	pending  map[string]*node
	head     *node // newest
	tail     *node // oldest
	maxSize  int   // 0 or negative = unbounded
	size     atomic.Int64
	evicted  atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryDeduper creates a new in-memory pending set.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.pending = make(map[string]*node)
	d.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}

	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.pending[key]; exists {
		return true
	}

	if d.maxSize > 0 && len(d.pending) >= d.maxSize {
		d.evictOldest()
	}

	n := d.nodePool.Get().(*node)
	n.key = key
	n.next = d.head
	if d.head != nil {
		d.head.prev = n
	}
	d.head = n
	if d.tail == nil {
		d.tail = n
	}
	d.pending[key] = n
	d.size.Add(1)
	return false
}

// Unrecord implements Deduper.
func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, exists := d.pending[key]; exists {
		d.remove(n)
	}
}

// Contains implements Deduper.
func (d *inMemoryDeduper) Contains(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, exists := d.pending[key]
	return exists
}

// evictOldest drops the tail. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	if d.tail == nil {
		return
	}
	d.remove(d.tail)
	d.evicted.Add(1)
}

// remove unlinks n. Must be called with d.mu held.
func (d *inMemoryDeduper) remove(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	delete(d.pending, n.key)
	n.reset()
	d.nodePool.Put(n)
	d.size.Add(-1)
}

// Size returns the number of pending keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// Evicted returns how many keys were dropped to respect the bound.
func Evicted(d Deduper) int64 {
	if m, ok := d.(*inMemoryDeduper); ok {
		return m.evicted.Load()
	}
	return 0
}
