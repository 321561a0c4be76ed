// Command fintrackctl administers a fintrack installation: migrations, demo
// data, summaries and exports from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

var rootCmd = &cobra.Command{
	Use:           "fintrackctl",
	Short:         "Administer a fintrack installation",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// env is what a command needs to act on the configured store.
type env struct {
	cfg    *config.Config
	logger *log.Logger
	store  *backend.BackendResult
	app    *cli.App
	close  func() error
}

func (e *env) Close() error {
	return errors.Join(e.close(), e.store.Cleanup())
}

// openEnv is replaced in tests.
var openEnv = func(ctx context.Context) (*env, error) {
	cfg, err := cli.LoadConfig((*config.Config).Validate)
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg)
	store, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	publisher, closePublisher, err := cli.OpenPublisher(cfg, logger)
	if err != nil {
		logger.Warn("AMQP unavailable, changes will not be mirrored until the next resync", log.FieldError, err)
		publisher, closePublisher = nil, func() error { return nil }
	}
	return &env{
		cfg:    cfg,
		logger: logger,
		store:  store,
		app:    cli.NewApp(store.Store, cfg, publisher, logger),
		close:  closePublisher,
	}, nil
}

// withEnv opens the environment for the duration of fn.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(ctx, e)
}

func (e *env) userByEmail(ctx context.Context, email string) (core.User, error) {
	if email == "" {
		return core.User{}, errors.New("--email is required")
	}
	u, err := e.store.Store.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		return core.User{}, fmt.Errorf("user %s: %w", email, err)
	}
	return u, nil
}

func windowFlags(cmd *cobra.Command) (*core.Window, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	return services.ParseWindow(from, to)
}

func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "First day included (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Last day included (YYYY-MM-DD)")
}
