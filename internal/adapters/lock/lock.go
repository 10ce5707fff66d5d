// Package lock serializes work per key, e.g. streak updates per user.
package lock

import (
	"context"
	"sync"
)

// Locker hands out exclusive access to a key. The returned unlock must be
// called exactly once. Lock honours ctx while waiting.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type entry struct {
	ch   chan struct{} // holds one token while locked
	refs int           // holders plus waiters
}

// Keyed is an in-process Locker with one mutex per key. Entries are
// dropped once no goroutine holds or waits for them, and distinct keys
// never contend.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
}

var _ Locker = (*Keyed)(nil)

// NewKeyed returns an empty keyed lock.
func NewKeyed() *Keyed {
	return &Keyed{entries: make(map[string]*entry)}
}

// Lock implements Locker.
func (k *Keyed) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.release(key, e)
		})
	}, nil
}

func (k *Keyed) release(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Len returns the number of keys currently held or awaited.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
