package mutation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/logger"
)

// ErrContextConsumed is returned when a Pending is committed or rolled back a
// second time.
var ErrContextConsumed = errors.New("pending mutation context already consumed")

// Pending is the context of one optimistic mutation between apply and
// reconcile. It owns the pre-mutation snapshots of every affected key and is
// consumed exactly once.
type Pending struct {
	c       *Controller
	name    string
	keys    []cache.Key
	snaps   []cache.Entry
	written map[cache.Key]uint64

	mu       sync.Mutex
	consumed bool
}

// Begin runs the snapshot and apply steps for keys: it takes every key lock
// (sorted), cancels reads in flight for those keys, snapshots them, computes
// every patch and writes all predictions at once. Locks are released before
// Begin returns, so the network call never runs under them.
func (c *Controller) Begin(ctx context.Context, name string, keys []cache.Key, patches []Patch) (*Pending, error) {
	keys = cache.SortKeys(keys)
	declared := make(map[cache.Key]bool, len(keys))
	for _, k := range keys {
		declared[k] = true
	}
	for _, p := range patches {
		if !declared[p.Key] {
			return nil, fmt.Errorf("mutation %s: patch for undeclared key %s", name, p.Key)
		}
	}

	unlock, err := c.store.Locks().LockAll(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("mutation %s: wait for key locks: %w", name, err)
	}
	defer unlock()

	snaps := make([]cache.Entry, 0, len(keys))
	current := make(map[cache.Key][]byte, len(keys))
	for _, k := range keys {
		c.queries.Cancel(k)
		e := c.store.Get(k)
		snaps = append(snaps, e)
		current[k] = e.Value
	}

	// later patches on the same key see the earlier predictions
	next := make(map[cache.Key][]byte, len(patches))
	for _, p := range patches {
		in := current[p.Key]
		out, err := p.Transform(in)
		if err != nil {
			return nil, fmt.Errorf("mutation %s: predict %s: %w", name, p.Key, err)
		}
		if bytes.Equal(in, out) && (in == nil) == (out == nil) {
			continue
		}
		current[p.Key] = out
		next[p.Key] = out
	}

	written := map[cache.Key]uint64{}
	if len(next) > 0 {
		written, err = c.store.WriteOptimisticAll(next)
		if err != nil {
			return nil, fmt.Errorf("mutation %s: apply: %w", name, err)
		}
	}
	logger.WithComponent("mutation").Debugf("%s applied optimistically to %d of %d keys", name, len(written), len(keys))

	return &Pending{
		c:       c,
		name:    name,
		keys:    keys,
		snaps:   snaps,
		written: written,
	}, nil
}

// Keys returns the affected keys, sorted.
func (p *Pending) Keys() []cache.Key {
	return append([]cache.Key(nil), p.keys...)
}

// Snapshot returns the pre-mutation entry of key.
func (p *Pending) Snapshot(key cache.Key) (cache.Entry, bool) {
	for _, s := range p.snaps {
		if s.Key == key {
			return s, true
		}
	}
	return cache.Entry{}, false
}

func (p *Pending) consume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.consumed {
		return ErrContextConsumed
	}
	p.consumed = true
	return nil
}

// Commit discards the snapshots and schedules a background refetch of every
// affected key, replacing predictions (temporary ids, server-computed fields)
// with authoritative data.
func (p *Pending) Commit() error {
	if err := p.consume(); err != nil {
		return err
	}
	p.snaps = nil
	p.c.queries.Refetch(p.keys...)
	return nil
}

// Rollback restores every written key to its snapshot, atomically with
// respect to the other keys. Keys where a newer authoritative fetch already
// landed are skipped; keys that a later optimistic write touched are skipped
// and refetched instead.
func (p *Pending) Rollback() (restored, skipped []cache.Key, err error) {
	if err := p.consume(); err != nil {
		return nil, nil, err
	}

	// rollback must finish even if the caller gave up
	unlock, err := p.c.store.Locks().LockAll(context.Background(), p.keys)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	restored, skipped, err = p.c.store.CompareAndRestore(p.snaps, p.written)
	if err != nil {
		return nil, nil, fmt.Errorf("mutation %s: rollback: %w", p.name, err)
	}

	var overwritten []cache.Key
	for _, k := range skipped {
		snap, _ := p.Snapshot(k)
		if p.c.store.Get(k).Version == snap.Version {
			overwritten = append(overwritten, k)
		}
		logger.WithKey("mutation", k.String()).Debugf("%s rollback skipped, key changed since the snapshot", p.name)
	}
	p.snaps = nil
	if len(overwritten) > 0 {
		// refetches run in the background and land after unlock
		p.c.queries.Invalidate(overwritten...)
	}
	return restored, skipped, nil
}
