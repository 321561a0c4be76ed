package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/sheets/google"
	"fintrack/internal/worker"
)

func main() {
	cfg, err := cli.LoadConfig((*config.Config).ValidateWorker)
	if err != nil {
		log.Default().Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg)
	logger.Info("Starting fintrack-worker")

	store, err := cli.OpenStore(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to open store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Cleanup()

	sheetsClient, err := google.New(context.Background(), cfg.GoogleSpreadsheetID, google.Credentials{
		JSON:            cfg.GoogleServiceAccountJSON,
		File:            cfg.GoogleServiceAccountFile,
		OAuthClientFile: cfg.GoogleOAuthClientFile,
		OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer consumer.Close()

	var metricsSrv *http.Server
	if cfg.WorkerMetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: ":" + cfg.WorkerMetricsPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", log.FieldError, err)
			}
		}()
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) error {
		if metricsSrv != nil {
			return metricsSrv.Shutdown(ctx)
		}
		return nil
	})

	mirror := worker.NewMirrorWorker(store.Store, sheetsClient, cfg.MirrorInterval, logger)
	if err := mirror.Run(ctx, consumer); err != nil {
		logger.Error("Mirror worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker shutdown complete")
}
