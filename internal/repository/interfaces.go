package repository

import "context"

// Saver persists a Household.
// Small interface used by background jobs like the persistence scheduler.
type Saver interface {
	Save(ctx context.Context, doc *Household) error
}

// Repository abstracts persistence and watching of the data file.
// JSONRepository implements this interface.
type Repository interface {
	Saver
	Load(ctx context.Context) (*Household, error)
	StartWatcher(ctx context.Context, cacheStore CacheStore) error
}

// CacheStore defines the interface for cache operations needed by the watcher callback.
type CacheStore interface {
	GetLastUpdate() int64
	IsDirty() bool
	Snapshot() (Household, error)
	Replace(doc Household) error
}
