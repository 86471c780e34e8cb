package session

import (
	"context"
	"time"

	"github.com/bassista/mealsync/internal/logger"
)

// StartSnapshotScheduler periodically persists the session's cache snapshot.
// On ctx.Done, it performs a final flush before returning.
// Returns a channel that is closed when the scheduler has completed shutdown.
func StartSnapshotScheduler(ctx context.Context, s *Session, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	log := logger.WithComponent("snapshot")
	log.Debugf("starting snapshot scheduler with interval: %v", interval)
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				if err := s.Persist(); err != nil {
					log.Errorf("final snapshot failed: %v", err)
				}
				log.Info("snapshot scheduler stopped after final flush")
				return
			case <-ticker.C:
				if err := s.Persist(); err != nil {
					log.Errorf("snapshot failed: %v", err)
				}
			}
		}
	}()
	return done
}
