package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vmunix/bellhop/internal/api"
	"github.com/vmunix/bellhop/internal/audit"
	"github.com/vmunix/bellhop/internal/config"
	"github.com/vmunix/bellhop/internal/database"
	"github.com/vmunix/bellhop/internal/matrix"
	"github.com/vmunix/bellhop/internal/media"
	"github.com/vmunix/bellhop/internal/server"
	"github.com/vmunix/bellhop/internal/session"
)

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runServer(configPath string) error {
	if configPath == "" {
		p, err := config.Discover()
		if err != nil {
			return err
		}
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	// === Clients ===
	mx := matrix.NewClient(cfg.Matrix.HomeserverURL, logger)

	// === Services ===
	store := session.NewStore(db)
	sessions := session.NewManager(store, mx, logger)

	notifier := audit.New(mx, cfg.Matrix.AuditRoomID, cfg.Matrix.BotAccessToken, cfg.Matrix.AuditQueueSize, logger)

	registry := media.NewRegistry(cfg.MediaSettings())
	dispatcher := media.NewDispatcher(registry, logger, media.WithNotifier(notifier))

	// === HTTP ===
	apiServer := api.New(sessions, dispatcher, api.Config{
		SecureCookies:     cfg.Server.SecureCookies(),
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
		LoginRequests:     cfg.RateLimit.LoginRequests,
		LoginWindow:       cfg.RateLimit.LoginWindow,
	}, logger)

	backends := make([]any, 0, 6)
	for _, b := range registry.Backends() {
		backends = append(backends, b.Kind.String(), b.Configured())
	}
	logger.Info("server starting",
		append([]any{
			"config", configPath,
			"database", cfg.Database.Path,
			"homeserver", cfg.Matrix.HomeserverURL,
			"audit", notifier.Enabled(),
			"log_level", cfg.Server.LogLevel,
		}, backends...)...,
	)

	runner := server.NewRunner(apiServer.Handler(), notifier, store, server.Config{
		Addr:          cfg.Server.Addr(),
		MaxIdle:       cfg.Sessions.MaxIdle,
		PruneInterval: cfg.Sessions.PruneInterval,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
