// Package household keeps the development backend's in-memory copy of the
// household document and persists it in the background.
package household

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/bassista/mealsync/internal/repository"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid request")
)

// Store keeps an in-memory copy of the household document.
type Store struct {
	mu         sync.RWMutex
	data       repository.Household
	dirty      bool  // true if cache changed since last persist
	lastUpdate int64 // cache's metadata.lastUpdate
	now        func() time.Time
	onReplace  []func()
}

// NewStore creates a store around doc.
func NewStore(doc repository.Household) *Store {
	doc.ApplyDefaults()
	return &Store{data: doc, lastUpdate: doc.Metadata.LastUpdate, now: time.Now}
}

// MarkDirty sets the dirty flag to true.
func (s *Store) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
}

// IsDirty returns true if cache has uncommitted changes.
func (s *Store) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// ClearDirty resets the dirty flag.
func (s *Store) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

// GetLastUpdate returns the cache's last update timestamp.
func (s *Store) GetLastUpdate() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

// SetLastUpdate sets the cache's last update timestamp.
func (s *Store) SetLastUpdate(ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpdate = ts
}

// Snapshot returns a deep copy of the cached data.
func (s *Store) Snapshot() (repository.Household, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.data)
}

// OnReplace registers fn to run after the document was swapped from disk.
func (s *Store) OnReplace(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReplace = append(s.onReplace, fn)
}

// Replace swaps the cached data.
func (s *Store) Replace(doc repository.Household) error {
	cloned, err := clone(doc)
	if err != nil {
		return err
	}
	cloned.ApplyDefaults()

	s.mu.Lock()
	s.data = cloned
	s.lastUpdate = doc.Metadata.LastUpdate
	s.dirty = false
	hooks := append([]func(){}, s.onReplace...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return nil
}

// write runs fn under the write lock and marks the store dirty when fn
// succeeds.
func (s *Store) write(fn func(d *repository.Household) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(&s.data); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

func (s *Store) stamp() int64 {
	return s.now().UnixMilli()
}

// clone deep-copies v to avoid shared slices between cache and callers.
func clone[T any](v T) (T, error) {
	var out T
	bytes, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(bytes, &out); err != nil {
		return out, err
	}
	return out, nil
}

func indexOf[T any](list []T, match func(T) bool) int {
	for i, v := range list {
		if match(v) {
			return i
		}
	}
	return -1
}
