// Package query loads cache keys from the remote API. Concurrent loads of one
// key share a single request, and loads that raced an optimistic write are
// cancelled or discarded.
package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrSuperseded is returned when a load was cancelled or discarded because
	// the key was optimistically written while it was in flight.
	ErrSuperseded = errors.New("fetch superseded by a local write")
	ErrNoLoader   = errors.New("no loader registered for resource")
)

// Loader returns the authoritative JSON for key.
type Loader func(ctx context.Context, key cache.Key) ([]byte, error)

type inflightLoad struct {
	cancel context.CancelFunc
}

type Fetcher struct {
	store     *cache.Store
	staleTime time.Duration
	baseCtx   context.Context

	mu       sync.Mutex
	loaders  map[string]Loader
	inflight map[cache.Key]*inflightLoad

	group singleflight.Group
	wg    sync.WaitGroup
}

// NewFetcher creates a fetcher bound to ctx: cancelling ctx aborts every load.
// Entries younger than staleTime are served from the cache by Get.
func NewFetcher(ctx context.Context, store *cache.Store, staleTime time.Duration) *Fetcher {
	return &Fetcher{
		store:     store,
		staleTime: staleTime,
		baseCtx:   ctx,
		loaders:   map[string]Loader{},
		inflight:  map[cache.Key]*inflightLoad{},
	}
}

// Register installs the loader for every key of resource.
func (f *Fetcher) Register(resource string, l Loader) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaders[resource] = l
}

func (f *Fetcher) Store() *cache.Store {
	return f.store
}

// Get serves key from the cache when it is present, fresh and not stale,
// otherwise it loads it. This is the refetch-on-access fallback that covers
// invalidations missed while the push channel was down.
func (f *Fetcher) Get(ctx context.Context, key cache.Key) (cache.Entry, error) {
	e := f.store.Get(key)
	if e.HasValue() && !e.Stale && (f.staleTime <= 0 || time.Since(e.FetchedAt) < f.staleTime) {
		return e, nil
	}
	return f.Fetch(ctx, key)
}

// Fetch loads key now, joining a load already in flight for it.
func (f *Fetcher) Fetch(ctx context.Context, key cache.Key) (cache.Entry, error) {
	ch := f.group.DoChan(key.String(), func() (any, error) {
		return f.load(key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return f.store.Get(key), res.Err
		}
		return res.Val.(cache.Entry), nil
	case <-ctx.Done():
		return f.store.Get(key), ctx.Err()
	}
}

func (f *Fetcher) load(key cache.Key) (cache.Entry, error) {
	f.mu.Lock()
	loader, ok := f.loaders[key.Resource]
	f.mu.Unlock()
	if !ok {
		return cache.Entry{}, fmt.Errorf("%w: %s", ErrNoLoader, key.Resource)
	}

	ctx, cancel := context.WithCancel(f.baseCtx)
	defer cancel()
	self := &inflightLoad{cancel: cancel}
	f.mu.Lock()
	f.inflight[key] = self
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		// a cancelled load may outlive the one that replaced it
		if f.inflight[key] == self {
			delete(f.inflight, key)
		}
		f.mu.Unlock()
	}()

	ticket, err := f.store.BeginFetch(key)
	if err != nil {
		return cache.Entry{}, err
	}

	log := logger.WithKey("query", key.String())
	log.Debug("fetch started")
	data, err := loader(ctx, key)
	if err != nil {
		f.store.AbortFetch(ticket)
		if ctx.Err() != nil && f.baseCtx.Err() == nil {
			log.Debug("fetch cancelled by local write")
			return cache.Entry{}, ErrSuperseded
		}
		return cache.Entry{}, fmt.Errorf("fetch %s: %w", key, err)
	}

	// landing is a write: queue behind any mutation applying on this key
	if err := f.store.Locks().Lock(f.baseCtx, key); err != nil {
		f.store.AbortFetch(ticket)
		return cache.Entry{}, err
	}
	entry, landed, err := f.store.Land(ticket, data)
	f.store.Locks().Unlock(key)
	if err != nil {
		return cache.Entry{}, err
	}
	if !landed {
		log.Debug("fetch discarded, key was written while in flight")
		return entry, ErrSuperseded
	}
	log.Debugf("fetch landed at version %d", entry.Version)
	return entry, nil
}

// Cancel aborts the load in flight for key, if any. The next Fetch starts a
// new request instead of joining the cancelled one.
func (f *Fetcher) Cancel(key cache.Key) {
	f.mu.Lock()
	l, ok := f.inflight[key]
	f.mu.Unlock()
	if ok {
		f.group.Forget(key.String())
		l.cancel()
	}
}

// FetchAll loads keys in parallel and returns the first error.
func (f *Fetcher) FetchAll(ctx context.Context, keys []cache.Key) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, k := range cache.SortKeys(keys) {
		g.Go(func() error {
			_, err := f.Get(gctx, k)
			if errors.Is(err, ErrSuperseded) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// Refetch reloads, in the background, every key of keys that holds a value.
// Keys never fetched are left alone.
func (f *Fetcher) Refetch(keys ...cache.Key) {
	for _, k := range cache.SortKeys(keys) {
		if !f.store.Get(k).HasValue() {
			continue
		}
		f.wg.Add(1)
		go func(k cache.Key) {
			defer f.wg.Done()
			if _, err := f.Fetch(f.baseCtx, k); err != nil && !errors.Is(err, ErrSuperseded) {
				logger.WithKey("query", k.String()).Warnf("background refetch failed: %v", err)
			}
		}(k)
	}
}

// Invalidate marks keys stale and refetches them in the background.
func (f *Fetcher) Invalidate(keys ...cache.Key) {
	var stale []cache.Key
	for _, k := range keys {
		if f.store.MarkStale(k) {
			stale = append(stale, k)
		}
	}
	f.Refetch(stale...)
}

// Wait blocks until every background refetch started so far has finished.
func (f *Fetcher) Wait() {
	f.wg.Wait()
}
