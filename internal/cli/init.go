// Package cli holds the start-up steps shared by fintrack, fintrack-worker
// and fintrackctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/log"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// LoadConfig reads .env and the layered configuration, then runs validate
// (config.(*Config).Validate or ValidateServer).
func LoadConfig(validate func(*config.Config) error) (*config.Config, error) {
	LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the default. Unknown levels fall back to info with a warning.
func SetupLogger(cfg *config.Config) *log.Logger {
	level, levelErr := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	if levelErr != nil {
		logger.Warn("Unknown log level, using info", "level", cfg.LogLevel)
	}
	return logger
}

// OpenStore creates the configured store, applying migrations.
func OpenStore(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", bcfg.Type, err)
	}
	return res, nil
}

// GracefulShutdown cancels the returned context on SIGINT or SIGTERM, then
// runs cleanup bounded by timeout. done is closed once cleanup returns.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context) error) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
		shutdown(logger, timeout, cleanup)
	}()

	return ctx, done
}

func shutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context) error) {
	if cleanup == nil {
		return
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := cleanup(shutdownCtx); err != nil {
		logger.Error("Shutdown cleanup failed", log.FieldOperation, log.OpShutdown, log.FieldError, err)
		return
	}
	if shutdownCtx.Err() != nil {
		logger.Warn("Shutdown timeout reached", log.FieldOperation, log.OpShutdown)
		return
	}
	logger.Info("Shutdown complete", log.FieldOperation, log.OpShutdown)
}
