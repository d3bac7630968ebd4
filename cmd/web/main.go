package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"era-photobooth/internal/booth"
	"era-photobooth/internal/compositor"
	"era-photobooth/internal/config"
	"era-photobooth/internal/gemini"
	"era-photobooth/internal/httpclient"
	"era-photobooth/internal/kiosk"
	"era-photobooth/internal/prompt"
	"era-photobooth/internal/usage"
)

func main() {
	tokenTTL := flag.Duration("operator-token", 0, "print an operator token valid for this long and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if *tokenTTL > 0 {
		if err := printOperatorToken(cfg, *tokenTTL); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("kiosk stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	scenes, closeScenes, err := newSceneSelector(cfg, logger)
	if err != nil {
		return err
	}
	defer closeScenes()

	detector, err := newDetector(cfg, httpClient, logger)
	if err != nil {
		return err
	}

	counter := usage.New(usage.Options{
		Endpoint:   cfg.UsageEndpoint,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	defer counter.Wait()

	gem, err := gemini.New(ctx, gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		Model:      cfg.GeminiModel,
		Timeout:    cfg.GenerationTimeout,
		HTTPClient: httpClient,
		Usage:      counter,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	hub := kiosk.NewHub(logger)
	listeners := []booth.Listener{hub.Listener()}

	uploader, channel, alerts, err := newSharing(cfg, httpClient, logger)
	if err != nil {
		return err
	}
	if alerts != nil {
		listeners = append(listeners, alerts)
	}

	comp := compositor.New(compositor.Options{
		Assets: compositor.NewFSAssets(os.DirFS(cfg.AssetsDir)),
		Logger: logger,
	})

	b := booth.New(booth.Options{
		Catalog:     catalog,
		Detector:    detector,
		Scenes:      scenes,
		Composer:    prompt.NewComposer(nil),
		Generator:   gem,
		Compositor:  comp,
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     cfg.RetryBackoff,
		Listener:    booth.Listeners(listeners...),
		Logger:      logger,
	})

	opts := kiosk.Options{
		Booth:          b,
		Hub:            hub,
		OperatorSecret: cfg.OperatorJWTSecret,
		BaseContext:    ctx,
		Logger:         logger,
	}
	// Typed nils must not reach the interface fields.
	if uploader != nil {
		opts.Uploader = uploader
	}
	if channel != nil {
		opts.Channel = channel
	}
	ks := kiosk.New(opts)

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           ks.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("kiosk started", "addr", cfg.WebAddr, "themes", catalog.Len(), "scene_store", cfg.SceneStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		ks.Wait()
		return err
	})

	return g.Wait()
}

func printOperatorToken(cfg config.Config, ttl time.Duration) error {
	if cfg.OperatorJWTSecret == "" {
		return errors.New("OPERATOR_JWT_SECRET is not set")
	}
	now := time.Now()
	token, err := kiosk.OperatorToken([]byte(cfg.OperatorJWTSecret), jwt.RegisteredClaims{
		Subject:   "operator",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.Debug {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
