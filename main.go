// entry point of the application
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"vidrelay/internal/config"
	httprouter "vidrelay/internal/infrastructure/delivery/http"
	"vidrelay/internal/observability"
	"vidrelay/internal/orchestrator"
	"vidrelay/internal/runner"
	"vidrelay/internal/session"
	"vidrelay/internal/tooling"
	"vidrelay/internal/workspace"
	httpserver "vidrelay/pkg/http/server"
	"vidrelay/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		slog.Error("config new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Options{
		AddSource: true,
		Level:     cfg.App.LogLevel,
	})
	if err != nil {
		slog.WarnContext(ctx, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	metrics := observability.New()

	if cfg.Tool.AutoInstall {
		log.InfoContext(ctx, "checking external binaries, first run may take a while...")

		if err := tooling.New(log, cfg).EnsureAll(ctx); err != nil {
			log.ErrorContext(ctx, "install external binaries", slog.Any("error", err))
			stop()
			os.Exit(1)
		}
	}

	run := runner.New(log, cfg)

	if _, err := run.BinaryPath(); err != nil {
		log.ErrorContext(ctx, "media tool binary not found; set VIDRELAY_TOOL_PATH or enable VIDRELAY_TOOL_AUTO_INSTALL",
			slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	ws := workspace.New(log, cfg.Dir.Workspace)
	sessions := session.NewRegistry(log, metrics)
	orc := orchestrator.New(log, cfg, run, sessions, ws, metrics)

	router := httprouter.New(log, cfg, orc, sessions, ws, metrics)

	httpSrv := httpserver.New(router, httpserver.Options{
		Addr:            cfg.HTTP.Port,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})

	log.InfoContext(ctx, "vidrelay started", slog.String("port", cfg.HTTP.Port))

	select {
	case <-ctx.Done():
	case err := <-httpSrv.Notify():
		log.ErrorContext(ctx, "http server", slog.Any("error", err))
	}

	if err := httpSrv.Shutdown(); err != nil {
		log.Error(err.Error())
	}

	log.InfoContext(ctx, "vidrelay shut down gracefully")
}
