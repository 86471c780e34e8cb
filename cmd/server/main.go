// Command server runs the development household backend: the REST API the
// sync client talks to and the push endpoint it listens on.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	route "github.com/bassista/mealsync/internal/api/route"
	appctx "github.com/bassista/mealsync/internal/app"
	"github.com/bassista/mealsync/internal/config"
	"github.com/bassista/mealsync/internal/household"
	"github.com/bassista/mealsync/internal/logger"
	"github.com/bassista/mealsync/internal/push"
	"github.com/bassista/mealsync/internal/repository"
	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		logger.WithComponent("main").Fatal(err)
	}
}

func run() error {
	log := logger.WithComponent("main")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if !logger.SetLevel(cfg.Misc.LogLevel) {
		log.Warnf("invalid log level '%s', keeping %s", cfg.Misc.LogLevel, logger.Logger.GetLevel())
	}

	repo, err := repository.NewJSONRepository(cfg.Data.FilePath)
	if err != nil {
		return fmt.Errorf("cannot init repository: %w", err)
	}
	doc, err := repo.LoadOrInit(context.Background())
	if err != nil {
		return fmt.Errorf("cannot load household file %s: %w", cfg.Data.FilePath, err)
	}
	log.Infof("household loaded: %d groceries, %d recipes, %d members",
		len(doc.Groceries), len(doc.Recipes), len(doc.Members))

	store := household.NewStore(*doc)
	hub := push.NewHub(store.HasSession, cfg.Server.PingInterval)

	app, err := appctx.New(cfg, repo, store, hub)
	if err != nil {
		return fmt.Errorf("cannot init app: %w", err)
	}
	defer app.Shutdown()

	if err := app.StartWatchers(); err != nil {
		log.Errorf("household file watcher not started, external edits will be ignored: %v", err)
	}

	gin.SetMode(cfg.Misc.GinMode)
	gin.DefaultWriter = logger.Logger.Writer()
	gin.DefaultErrorWriter = logger.Logger.Writer()

	srv := newServer(app.BaseCtx, cfg.Server, route.SetupRoutes(app, logger.Logger))
	log.Infof("household API listening on port %d", cfg.Server.Port)
	if err := srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
