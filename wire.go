package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lmittmann/tint"

	"github.com/kibsywow/recruit-bot/armory"
	"github.com/kibsywow/recruit-bot/config"
	"github.com/kibsywow/recruit-bot/poll"
	"github.com/kibsywow/recruit-bot/scraper"
	"github.com/kibsywow/recruit-bot/storage"
	"github.com/kibsywow/recruit-bot/webhook"
)

const redisPrefix = "recruit-bot:"

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// app owns the pipeline and the clients that must be closed with it.
type app struct {
	monitor *poll.Monitor
	closers []func() error
	logger  *slog.Logger
}

// Close releases store connections.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("Failed to close client", "error", err)
		}
	}
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}

	store, err := newStore(ctx, cfg, logger, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	pages := scraper.New(httpClient, cfg.ListingURL, logger).WithBaseURL(cfg.ProfileURL)
	tokens := armory.NewTokenSource(cfg.BnetID, cfg.BnetSecret, cfg.BnetTokenURL, httpClient, logger)
	enricher := armory.NewEnricher(pages, armory.NewClient(cfg.BnetAPIURL, cfg.HTTPTimeout, logger), logger)

	var provider webhook.Provider
	if cfg.DryRun {
		logger.Info("Dry run enabled, announcements are logged instead of posted")
		provider = webhook.NewMockProvider(logger)
	} else {
		provider = webhook.NewDiscordProvider(cfg.WebhookURL, httpClient, logger)
	}

	a.monitor = poll.New(pages, store, tokens, enricher, webhook.New(provider, logger), cfg.StateKey, logger)
	return a, nil
}

func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, a *app) (poll.Store, error) {
	switch cfg.Backend() {
	case "redis":
		client, err := storage.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		logger.Info("Using Redis state store")
		return storage.NewRedis(client, redisPrefix, logger), nil

	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.CredentialsJSON)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		logger.Info("Using Cloud Storage state store", "bucket", cfg.StorageBucket, "attempts", cfg.StoreAttempts)
		return storage.NewGCS(client, cfg.StorageBucket, cfg.StoreAttempts, logger), nil

	default:
		if isCloudRun(ctx) {
			logger.Warn("Local state store on Cloud Run does not survive instance restarts, set STORAGE_BUCKET or REDIS_URL",
				"storage_path", cfg.LocalStorage)
		}
		store, err := storage.NewLocal(cfg.LocalStorage, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Using local state store", "storage_path", cfg.LocalStorage)
		return store, nil
	}
}

// isCloudRun checks if we're running in a GCP environment by querying the metadata server.
func isCloudRun(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Metadata-Flavor", "Google")

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	return resp.StatusCode == http.StatusOK
}

var metadataURL = "http://metadata.google.internal/computeMetadata/v1/project/project-id"
