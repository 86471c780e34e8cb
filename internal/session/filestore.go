package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bassista/mealsync/internal/logger"
	"github.com/bassista/mealsync/internal/repository"
)

// FileStore is a small durable key/value store backed by one JSON file.
// Every Set or Delete rewrites the file atomically; the last write wins.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	values map[string]json.RawMessage
}

// OpenFileStore loads path when it exists and starts empty otherwise.
func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("state file path is required")
	}
	f := &FileStore{path: path, values: map[string]json.RawMessage{}}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileStore) Path() string {
	return f.path
}

// Reload re-reads the file. A missing file empties the store.
func (f *FileStore) Reload() error {
	payload, err := os.ReadFile(f.path)
	values := map[string]json.RawMessage{}
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read state file: %w", err)
	case len(payload) > 0:
		if err := json.Unmarshal(payload, &values); err != nil {
			return fmt.Errorf("decode state file: %w", err)
		}
	}

	f.mu.Lock()
	f.values = values
	f.mu.Unlock()
	return nil
}

// Get decodes the value stored under key into out. It reports false when the
// key is missing.
func (f *FileStore) Get(key string, out any) (bool, error) {
	f.mu.RLock()
	raw, ok := f.values[key]
	f.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// GetString returns the string under key, or "" when it is missing or not a
// string.
func (f *FileStore) GetString(key string) string {
	var s string
	if ok, err := f.Get(key, &s); !ok || err != nil {
		return ""
	}
	return s
}

func (f *FileStore) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = raw
	return f.flushLocked()
}

func (f *FileStore) Delete(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
	}
	return f.flushLocked()
}

func (f *FileStore) flushLocked() error {
	payload, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}
	return repository.WriteFileAtomic(f.path, payload)
}

// Watch reloads the store after the file changes on disk and then calls
// onChange. It stops when ctx is cancelled.
func (f *FileStore) Watch(ctx context.Context, debounce time.Duration, onChange func()) error {
	return repository.WatchFile(ctx, f.path, debounce, func() {
		if err := f.Reload(); err != nil {
			logger.WithComponent("state-file").Warnf("reload failed: %v", err)
			return
		}
		if onChange != nil {
			onChange()
		}
	})
}
