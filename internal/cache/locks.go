package cache

import (
	"context"
	"sync"
)

// KeyLocks is a set of cooperative per-key locks. A waiter parks on the
// channel of the current holder, so waiting honours ctx and never blocks an
// OS thread on a mutex.
type KeyLocks struct {
	mu   sync.Mutex
	held map[Key]chan struct{}
}

func NewKeyLocks() *KeyLocks {
	return &KeyLocks{held: map[Key]chan struct{}{}}
}

// Lock blocks until key is free or ctx is done.
func (l *KeyLocks) Lock(ctx context.Context, key Key) error {
	for {
		l.mu.Lock()
		ch, busy := l.held[key]
		if !busy {
			l.held[key] = make(chan struct{})
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Unlock releases key. Unlocking a free key is a no-op.
func (l *KeyLocks) Unlock(key Key) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ch, ok := l.held[key]; ok {
		delete(l.held, key)
		close(ch)
	}
}

// LockAll takes every key in sorted order, so two multi-key holders can never
// deadlock. On failure the keys already taken are released.
func (l *KeyLocks) LockAll(ctx context.Context, keys []Key) (func(), error) {
	sorted := SortKeys(keys)
	for i, k := range sorted {
		if err := l.Lock(ctx, k); err != nil {
			for _, taken := range sorted[:i] {
				l.Unlock(taken)
			}
			return nil, err
		}
	}
	return func() {
		for _, k := range sorted {
			l.Unlock(k)
		}
	}, nil
}

// Held reports whether key is currently locked.
func (l *KeyLocks) Held(key Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}
