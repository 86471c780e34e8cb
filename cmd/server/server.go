package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"net/http"
	"syscall"

	"github.com/bassista/mealsync/internal/config"
	"github.com/bassista/mealsync/internal/logger"
	"github.com/enrichman/httpgrace"
)

// newServer wraps h in a server that drains in-flight requests on SIGINT or
// SIGTERM. Request contexts derive from ctx, so shutting the app down also
// ends open push sessions.
func newServer(ctx context.Context, sc config.ServerConfig, h http.Handler) *httpgrace.Server {
	out := logger.Logger.Writer()

	return httpgrace.NewServer(h,
		httpgrace.WithTimeout(sc.ShutDownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slog.New(slog.NewTextHandler(out, nil))),
		httpgrace.WithBeforeShutdown(func() {
			logger.WithComponent("http").Info("shutting down household API")
		}),
		httpgrace.WithServerOptions(
			httpgrace.WithReadTimeout(sc.ReadTimeout),
			httpgrace.WithWriteTimeout(sc.WriteTimeout),
			httpgrace.WithIdleTimeout(sc.IdleTimeout),
			func(srv *http.Server) {
				srv.BaseContext = func(net.Listener) context.Context { return ctx }
				srv.ErrorLog = log.New(out, "[http] ", log.LstdFlags)
			},
		),
	)
}
