package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bassista/mealsync/internal/calendar"
	"github.com/bassista/mealsync/internal/client"
	"github.com/bassista/mealsync/internal/config"
	"github.com/bassista/mealsync/internal/logger"
	"github.com/bassista/mealsync/internal/session"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "mealsync"
	app.Usage = "shared grocery list, recipes and meal plan for the household"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "api", Usage: "household API base url (overrides client.api_url)"},
		cli.StringFlag{Name: "push", Usage: "push websocket url, derived from --api when empty"},
		cli.StringFlag{Name: "state", Usage: "client state file (overrides client.state_file)"},
		cli.StringFlag{Name: "log-level", Usage: "log level (overrides misc.log_level)"},
	}
	app.Commands = commands()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "mealsync: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the shared configuration and applies the global flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if api := c.GlobalString("api"); api != "" {
		cfg.Client.APIURL = api
		cfg.Client.PushURL = config.PushURLFor(api)
	}
	if push := c.GlobalString("push"); push != "" {
		cfg.Client.PushURL = push
	}
	if state := c.GlobalString("state"); state != "" {
		cfg.Client.StateFile = state
	}
	level := cfg.Misc.LogLevel
	if l := c.GlobalString("log-level"); l != "" {
		level = l
	}
	if !logger.SetLevel(level) {
		logger.WithComponent("main").Warnf("invalid log level '%s', keeping %s", level, logger.Logger.GetLevel())
	}
	return cfg, nil
}

// env is one CLI invocation's view of the sync core.
type env struct {
	cfg    *config.Config
	kv     *session.FileStore
	sess   *session.Session
	client *client.Client
}

func openEnv(ctx context.Context, cfg *config.Config) (*env, error) {
	kv, err := session.OpenFileStore(cfg.Client.StateFile)
	if err != nil {
		return nil, err
	}
	sess := session.New(kv)
	if _, _, err := sess.Restore(); err != nil {
		return nil, err
	}
	g, err := calendar.ParseGranularity(cfg.Client.Granularity)
	if err != nil {
		return nil, err
	}
	cl, err := client.New(ctx, sess, client.Options{
		APIURL:      cfg.Client.APIURL,
		PushURL:     cfg.Client.PushURL,
		StaleTime:   cfg.Client.StaleTime,
		Granularity: g,
		BackoffMin:  cfg.Client.BackoffMin,
		BackoffMax:  cfg.Client.BackoffMax,
	})
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, kv: kv, sess: sess, client: cl}, nil
}

// close waits for background refetches and saves the cache snapshot.
func (e *env) close() error {
	e.client.Wait()
	return e.sess.Persist()
}

// action wraps fn with config loading, signal handling and the env
// lifecycle.
func action(fn func(ctx context.Context, e *env, c *cli.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		e, err := openEnv(ctx, cfg)
		if err != nil {
			return err
		}
		runErr := fn(ctx, e, c)
		if err := e.close(); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	}
}

// needArgs fails unless c carries exactly n positional arguments.
func needArgs(c *cli.Context, n int, usage string) error {
	if c.NArg() != n {
		return cli.NewExitError(fmt.Sprintf("usage: %s %s", c.Command.FullName(), usage), 2)
	}
	return nil
}
