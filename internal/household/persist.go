package household

import (
	"context"
	"fmt"
	"time"

	"github.com/bassista/mealsync/internal/logger"
	"github.com/bassista/mealsync/internal/repository"
)

// StartPersistenceScheduler writes the household to repo every interval while
// it has unsaved changes, plus once more when ctx is done. The returned
// channel closes after that last write.
func StartPersistenceScheduler(ctx context.Context, store PersistableStore, repo repository.Saver, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	log := logger.WithComponent("persist")
	log.Debugf("saving household every %v", interval)

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := flush(ctx, store, repo); err != nil {
					log.Errorf("persist error: %v", err)
				}
			case <-ctx.Done():
				// ctx is done; the last save runs on its own context
				if err := flush(context.Background(), store, repo); err != nil {
					log.Errorf("final save failed, changes since the last save are lost: %v", err)
					return
				}
				log.Info("household saved, persistence stopped")
				return
			}
		}
	}()
	return done
}

// flush saves a snapshot when the store is dirty. The dirty flag survives a
// failed save so the next tick retries.
func flush(ctx context.Context, store PersistableStore, repo repository.Saver) error {
	if !store.IsDirty() {
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}
	doc, err := store.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot household: %w", err)
	}
	doc.Metadata.LastUpdate = time.Now().UnixMilli()
	if err := repo.Save(ctx, &doc); err != nil {
		return fmt.Errorf("save household: %w", err)
	}
	store.ClearDirty()
	store.SetLastUpdate(doc.Metadata.LastUpdate)
	logger.WithComponent("persist").Debugf("household saved (%d groceries, %d recipes, %d schedule entries)",
		len(doc.Groceries), len(doc.Recipes), len(doc.Schedule))
	return nil
}
