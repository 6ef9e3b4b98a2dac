package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whatsapp-console/internal/api"
	"whatsapp-console/internal/assets"
	"whatsapp-console/internal/config"
	"whatsapp-console/internal/database"
	"whatsapp-console/internal/logger"
	"whatsapp-console/internal/messaging"
	"whatsapp-console/internal/webhook"
	"whatsapp-console/internal/whatsapp"
	"whatsapp-console/internal/ws"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close(context.Background())

	host, media, err := openAssets(cfg, store)
	if err != nil {
		logger.Error("failed to init asset host", "backend", cfg.AssetBackend, "error", err)
		os.Exit(1)
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	service := &messaging.Service{
		Provider:         whatsapp.NewClient(cfg),
		Assets:           host,
		Store:            store,
		Notifier:         hub,
		DefaultRecipient: cfg.DefaultRecipient,
	}

	r := api.NewRouter(api.Deps{
		Store:   store,
		Service: service,
		Webhook: webhook.NewHandler(cfg, store, hub),
		Hub:     hub,
		Assets:  host,
		Media:   media,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server starting", "port", cfg.Port, "driver", cfg.DBDriver, "assets", cfg.AssetBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to run server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
}

// openAssets returns the upload host and, for gridfs, the source served on /media/:id.
func openAssets(cfg *config.Config, store database.Store) (assets.Host, api.MediaSource, error) {
	switch cfg.AssetBackend {
	case config.AssetsGridFS:
		mongoStore, ok := store.(*database.MongoStore)
		if !ok {
			return nil, nil, fmt.Errorf("gridfs needs the mongo store, got %T", store)
		}
		g, err := assets.NewGridFS(mongoStore.Database(), cfg.PublicBaseURL)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	default:
		c, err := assets.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	}
}
