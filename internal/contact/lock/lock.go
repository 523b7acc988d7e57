// Package lock serializes identity resolutions that touch overlapping
// attribute values. Two requests sharing an email or phone key run one after
// the other; requests with disjoint keys proceed concurrently.
//
// Callers must pass keys in sorted order (the service derives them that way),
// which gives every request the same acquisition order and rules out
// deadlock.
package lock

import (
	"context"
	"sync"
)

// Keyed is the in-process implementation: one mutex per live key with
// refcounted cleanup. Suitable for single-instance deployments and tests.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	wait chan struct{} // closed-never channel used as a semaphore of size 1
	refs int
}

// NewKeyed constructs an in-process keyed lock.
func NewKeyed() *Keyed {
	return &Keyed{entries: make(map[string]*entry)}
}

// Lock acquires every key in order, blocking on held ones. Returns the
// context error if the caller gives up while waiting.
func (k *Keyed) Lock(ctx context.Context, keys []string) error {
	for i, key := range keys {
		if err := k.lockOne(ctx, key); err != nil {
			k.Unlock(ctx, keys[:i])
			return err
		}
	}
	return nil
}

// Unlock releases the given keys. Keys not held are ignored.
func (k *Keyed) Unlock(_ context.Context, keys []string) {
	for _, key := range keys {
		k.unlockOne(key)
	}
}

func (k *Keyed) lockOne(ctx context.Context, key string) error {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{wait: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.wait <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.release(key, e)
		return ctx.Err()
	}
}

func (k *Keyed) unlockOne(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	k.mu.Unlock()
	if !ok {
		return
	}
	<-e.wait
	k.release(key, e)
}

func (k *Keyed) release(key string, e *entry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()
}
