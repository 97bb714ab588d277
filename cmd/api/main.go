package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"parcelbox/internal/config"
	"parcelbox/internal/events"
	"parcelbox/internal/handlers"
	"parcelbox/internal/jobs"
	"parcelbox/internal/log"
	"parcelbox/internal/notify"
	"parcelbox/internal/security"
	"parcelbox/internal/server"
	"parcelbox/internal/service"
	"parcelbox/internal/session"
	"parcelbox/internal/storage"
	"parcelbox/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := log.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	artifacts, staticDir, err := openArtifactStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open artifact store: %w", err)
	}

	bus, err := openEventBus(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open event bus: %w", err)
	}
	defer bus.Close()

	gateway := notify.NewHTTPGateway(cfg.Gateway)
	dispatcher := notify.NewDispatcher(db, gateway, cfg.Gateway.PublicBaseURL, logger)
	go func() {
		if err := bus.Run(ctx, dispatcher.Handle); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("event bus stopped")
		}
	}()

	tokens := security.NewTokenIssuer(cfg.Security)
	sessions := session.NewStore(db, cfg.Security.SessionTTL, logger)
	authService := service.NewAuthService(db, tokens, sessions, logger)
	packageService := service.NewPackageService(db, artifacts, bus, logger)

	if err := authService.EnsureAdmin(ctx, cfg.Security.AdminUsername, cfg.Security.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	handlerSet := handlers.NewHandlerSet(cfg, authService, packageService, tokens, sessions, db, bus, logger)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet, staticDir)

	scheduler := jobs.NewScheduler(sessions, logger)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer scheduler.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.AppConfig) (store.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "file":
		return store.NewFileStore(cfg.Store.Path)
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.Store)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// openArtifactStore returns the driver plus the local directory to mount
// under /storage; the directory is empty for remote drivers.
func openArtifactStore(ctx context.Context, cfg *config.AppConfig) (storage.ArtifactStore, string, error) {
	switch cfg.Storage.Driver {
	case "fs":
		fs, err := storage.NewFSStore(cfg.Storage.LocalPath)
		if err != nil {
			return nil, "", err
		}
		return fs, fs.Dir(), nil
	case "minio":
		objects, err := storage.NewObjectStore(cfg.Storage)
		if err != nil {
			return nil, "", err
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			return nil, "", err
		}
		return objects, "", nil
	default:
		return nil, "", fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func openEventBus(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (events.Bus, error) {
	switch cfg.Events.Driver {
	case "channel":
		return events.NewChannelBus(cfg.Events.BufferSize, logger), nil
	case "redis":
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "api"
		}
		return events.NewRedisBus(ctx, cfg.Events, hostname, logger)
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Events.Driver)
	}
}
