package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bassista/mealsync/internal/logger"
	"github.com/go-playground/validator/v10"
)

const watchDebounce = 200 * time.Millisecond

// JSONRepository handles disk persistence and watching of the household file.
type JSONRepository struct {
	path      string
	validator *validator.Validate
	mu        sync.Mutex
}

// NewJSONRepository creates a repository for the given JSON file path.
func NewJSONRepository(path string) (*JSONRepository, error) {
	if path == "" {
		return nil, errors.New("data file path is required")
	}
	return &JSONRepository{path: path, validator: validator.New()}, nil
}

func (r *JSONRepository) Path() string {
	return r.path
}

// Load reads the JSON file, parses and validates it. A missing file yields
// os.ErrNotExist in the error chain.
func (r *JSONRepository) Load(ctx context.Context) (*Household, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer file.Close()

	var doc Household
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode data file: %w", err)
	}
	doc.ApplyDefaults()

	if err := r.validator.Struct(&doc); err != nil {
		return nil, fmt.Errorf("validate data file: %w", err)
	}
	return &doc, nil
}

// LoadOrInit loads the household, creating an empty one on disk when the file
// does not exist yet.
func (r *JSONRepository) LoadOrInit(ctx context.Context) (*Household, error) {
	doc, err := r.Load(ctx)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	logger.WithComponent("json-repo").Infof("data file %s not found, starting an empty household", r.path)
	doc = &Household{}
	doc.ApplyDefaults()
	if err := r.Save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Save validates and writes the document atomically to disk.
func (r *JSONRepository) Save(ctx context.Context, doc *Household) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.validator.Struct(doc); err != nil {
		return fmt.Errorf("validate before save: %w", err)
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return WriteFileAtomic(r.path, payload)
}

// StartWatcher reloads cacheStore when the file is edited behind the
// server's back. The caller owns ctx: cancel it to stop watching.
func (r *JSONRepository) StartWatcher(ctx context.Context, cacheStore CacheStore) error {
	if cacheStore == nil {
		return errors.New("cache store is required")
	}
	return WatchFile(ctx, r.path, watchDebounce, r.MakeWatcherCallback(ctx, cacheStore))
}

// MakeWatcherCallback returns a callback for file watcher that reloads cache from disk if needed.
func (r *JSONRepository) MakeWatcherCallback(ctx context.Context, cacheStore CacheStore) func() {
	log := logger.WithComponent("json-repo")
	return func() {
		diskDoc, loadErr := r.Load(ctx)
		if loadErr != nil {
			log.Warnf("watch reload failed: %v", loadErr)
			return
		}
		cacheLastUpdate := cacheStore.GetLastUpdate()
		diskLastUpdate := diskDoc.Metadata.LastUpdate

		if diskLastUpdate < cacheLastUpdate {
			log.Debugf("disk version %d is older than cache %d, skipping reload", diskLastUpdate, cacheLastUpdate)
			return
		}

		if cacheStore.IsDirty() {
			// the cache content will be written to file soon anyway
			log.Warn("disk data is newer but cache is dirty; skipping reload")
			return
		}

		if diskLastUpdate == cacheLastUpdate {
			snapshot, err := cacheStore.Snapshot()
			if err != nil {
				log.Errorf("cache reload error: failed to get snapshot: %v", err)
				return
			}
			if AreHouseholdsEqual(&snapshot, diskDoc) {
				return
			}
		}
		if err := cacheStore.Replace(*diskDoc); err != nil {
			log.Errorf("cache reload error: %v", err)
			return
		}
		log.Info("cache reloaded from newer disk version")
	}
}
