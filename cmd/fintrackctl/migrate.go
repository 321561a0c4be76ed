package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Open the configured store (DATA_BACKEND) and apply every pending migration.
Stores migrate on open, so this only needs to run before the first start or
after an upgrade when the server is not running.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			if err := e.store.Store.Ping(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied to %s store\n", e.cfg.DataBackend)
			return nil
		})
	},
}
