package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/config"
	"github.com/bassista/mealsync/internal/household"
	"github.com/bassista/mealsync/internal/logger"
	"github.com/bassista/mealsync/internal/push"
	"github.com/bassista/mealsync/internal/repository"
)

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config *config.Config
	Repo   repository.Repository
	Store  household.AppStore
	Hub    *push.Hub

	BaseCtx context.Context
	Cancel  context.CancelFunc

	persisted <-chan struct{}
}

func New(cfg *config.Config, repo repository.Repository, store household.AppStore, hub *push.Hub) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if repo == nil {
		return nil, errors.New("repo is nil")
	}
	if store == nil {
		return nil, errors.New("household store is nil")
	}
	if hub == nil {
		return nil, errors.New("push hub is nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		Config:  cfg,
		Repo:    repo,
		Store:   store,
		Hub:     hub,
		BaseCtx: ctx,
		Cancel:  cancel,
	}, nil
}

// Shutdown stops the background jobs, waits for the final flush and drops
// every push connection.
func (a *App) Shutdown() {
	if a == nil || a.Cancel == nil {
		return
	}
	a.Cancel()
	if a.persisted != nil {
		<-a.persisted
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
}

// externalResources are broadcast after the household file was edited on disk;
// any collection may have changed.
var externalResources = []string{cache.Groceries, cache.Recipes, cache.Schedule, cache.Invitations}

// StartWatchers starts the persistence scheduler and the data file watcher.
// The scheduler keeps running when the watcher fails.
func (a *App) StartWatchers() error {
	a.Store.OnReplace(func() {
		logger.WithComponent("app").Info("household reloaded from disk, notifying clients")
		for _, r := range externalResources {
			a.Hub.Broadcast(push.Invalidation(r))
		}
	})

	a.persisted = household.StartPersistenceScheduler(a.BaseCtx, a.Store, a.Repo, a.Config.Data.PersistInterval)

	if err := a.Repo.StartWatcher(a.BaseCtx, a.Store); err != nil {
		return fmt.Errorf("cannot start data file watcher: %w", err)
	}
	return nil
}
