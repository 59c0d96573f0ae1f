package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loodlijn/dispatch/cmd/mainconfig"
	"github.com/loodlijn/dispatch/internal/api/router"
	"github.com/loodlijn/dispatch/internal/dispatch"
	"github.com/loodlijn/dispatch/internal/webchat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := mainconfig.Build(ctx)
	if err != nil {
		slog.Error("startup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.Close()

	handler := router.New(&router.Config{
		Logger:             app.Logger,
		DispatchHandler:    dispatch.NewHandler(app.Service, app.Logger),
		WebchatHandler:     webchat.NewHandler(app.Service, app.Logger),
		MetricsHandler:     app.MetricsHandler,
		CORSAllowedOrigins: app.Cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + app.Cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// With the in-memory queue the API process is also the worker.
	workerDone := make(chan struct{})
	if app.Cfg.UseMemoryQueue {
		go func() {
			defer close(workerDone)
			app.Workers.Run(ctx)
		}()
	} else {
		close(workerDone)
	}

	go func() {
		app.Logger.Info("api listening", slog.String("port", app.Cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	app.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("shutdown failed", slog.String("error", err.Error()))
	}
	<-workerDone
}
