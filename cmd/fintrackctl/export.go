package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("email", "", "Account email")
	exportCmd.Flags().String("format", "xlsx", "Artifact format: xlsx or pdf")
	exportCmd.Flags().String("out", "", "Output path (defaults to the generated file name)")
	addWindowFlags(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write an account's transactions to an xlsx or pdf file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")
		win, err := windowFlags(cmd)
		if err != nil {
			return err
		}
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			u, err := e.userByEmail(ctx, email)
			if err != nil {
				return err
			}
			art, err := e.app.Reports.Export(ctx, u.ID, format, win)
			if err != nil {
				return err
			}
			if out == "" {
				out = art.Filename
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
			}
			if err := os.WriteFile(out, art.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d rows, %d skipped, %d bytes)\n", out, art.Rows, art.Skipped, len(art.Data))
			return nil
		})
	},
}
