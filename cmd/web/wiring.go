package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/valkey-io/valkey-go"

	"era-photobooth/internal/booth"
	"era-photobooth/internal/config"
	"era-photobooth/internal/demographics"
	"era-photobooth/internal/scene"
	"era-photobooth/internal/share"
	"era-photobooth/internal/telegram"
	"era-photobooth/internal/theme"
)

func loadCatalog(cfg config.Config) (*theme.Catalog, error) {
	if cfg.ThemesFile != "" {
		return theme.LoadFile(cfg.ThemesFile)
	}
	return theme.DefaultCatalog()
}

func newSceneSelector(cfg config.Config, logger *slog.Logger) (*scene.Selector, func(), error) {
	var (
		store   scene.Store
		closeFn = func() {}
	)

	switch cfg.SceneStore {
	case config.SceneStoreMemory:
		store = scene.NewMemoryStore()
	case config.SceneStoreValkey:
		client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{cfg.ValkeyAddr}})
		if err != nil {
			return nil, nil, fmt.Errorf("connect valkey %s: %w", cfg.ValkeyAddr, err)
		}
		store = scene.NewValkeyStore(client, scene.DefaultValkeyKey)
		closeFn = client.Close
	default:
		fileStore, err := scene.OpenFileStore(cfg.SceneStorePath)
		if err != nil {
			return nil, nil, err
		}
		store = fileStore
	}

	return scene.NewSelector(scene.Options{Store: store, Logger: logger}), closeFn, nil
}

// newDetector falls back to a backend-less classifier, which always reports
// the default single-woman read.
func newDetector(cfg config.Config, httpClient *http.Client, logger *slog.Logger) (*demographics.Classifier, error) {
	if cfg.DetectorURL == "" {
		logger.Warn("no detector configured; using default demographics")
		return demographics.NewClassifier(demographics.Options{Logger: logger}), nil
	}

	backend, err := demographics.NewOllamaBackend(demographics.OllamaOptions{
		BaseURL:    cfg.DetectorURL,
		Model:      cfg.DetectorModel,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}
	return demographics.NewClassifier(demographics.Options{Backend: backend, Logger: logger}), nil
}

func newSharing(cfg config.Config, httpClient *http.Client, logger *slog.Logger) (*share.Uploader, *share.ChannelPublisher, booth.Listener, error) {
	uploader, err := share.NewUploader(share.UploaderOptions{
		URL:        cfg.ShareUploadURL,
		Format:     cfg.ShareFormat,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	if !cfg.TelegramEnabled() {
		return uploader, nil, nil, nil
	}

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		// Telegram is optional; the kiosk keeps running without it.
		logger.Error("telegram init failed", "err", err)
		return uploader, nil, nil, nil
	}
	logger.Info("telegram enabled", "username", tg.Username())

	var (
		channel *share.ChannelPublisher
		alerts  booth.Listener
	)
	if cfg.TelegramShareChatID != 0 {
		channel = share.NewChannelPublisher(tg, cfg.TelegramShareChatID)
	}
	if cfg.TelegramAlertChatID != 0 {
		alerts = telegram.AlertListener(tg, cfg.TelegramAlertChatID, logger)
	}
	return uploader, channel, alerts, nil
}
