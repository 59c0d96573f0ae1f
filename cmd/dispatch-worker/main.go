package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/loodlijn/dispatch/cmd/mainconfig"
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

	app.Logger.Info("dispatch worker starting", slog.Int("workers", app.Cfg.WorkerCount))
	app.Workers.Run(ctx)
	app.Logger.Info("dispatch worker stopped")
}
