package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
)

func main() {
	cfg, err := cli.LoadConfig((*config.Config).ValidateServer)
	if err != nil {
		log.Default().Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg)

	store, err := cli.OpenStore(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to open store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	publisher, closePublisher, err := cli.OpenPublisher(cfg, logger)
	if err != nil {
		// the API works without events; the mirror catches up on its resync
		logger.Error("Failed to connect to AMQP, continuing without events", log.FieldError, err)
		publisher, closePublisher = nil, func() error { return nil }
	}

	app := cli.NewApp(store.Store, cfg, publisher, logger)

	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	caches.Register(app.SummaryCache)
	caches.StartCleanup(time.Minute)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Accounts:     app.Accounts,
		Transactions: app.Transactions,
		Summaries:    app.Summaries,
		Reports:      app.Reports,
	}, apphttp.Options{
		Issuer:             app.Issuer,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPM:       cfg.RateLimitRPM,
		Ready:              store.Store,
		Logger:             logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) error {
		err := srv.Shutdown(ctx)
		caches.Stop()
		return errors.Join(err, closePublisher(), store.Cleanup())
	})

	logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
