package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/sheets/google"
)

func init() {
	rootCmd.AddCommand(sheetsAuthCmd)
	sheetsAuthCmd.Flags().String("client", os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"), "OAuth client secret JSON file")
	sheetsAuthCmd.Flags().String("token", envOr("GOOGLE_OAUTH_TOKEN_FILE", "token.json"), "Where to save the token")
	sheetsAuthCmd.Flags().Int("port", 8085, "Local port for the redirect (http://localhost:PORT/callback)")
	sheetsAuthCmd.Flags().Duration("timeout", 5*time.Minute, "How long to wait for consent")
}

var sheetsAuthCmd = &cobra.Command{
	Use:   "sheets-auth",
	Short: "Authorize the spreadsheet mirror with a Google account",
	Long: `Run the OAuth consent flow for the spreadsheet mirror and save the token.
The client's authorized redirect URIs must include http://localhost:PORT/callback.
Point GOOGLE_OAUTH_CLIENT_FILE and GOOGLE_OAUTH_TOKEN_FILE at the files for
fintrack-worker to use them instead of a service account.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		clientFile, _ := cmd.Flags().GetString("client")
		tokenFile, _ := cmd.Flags().GetString("token")
		port, _ := cmd.Flags().GetInt("port")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		if clientFile == "" {
			return errors.New("--client (or GOOGLE_OAUTH_CLIENT_FILE) is required")
		}

		clientJSON, err := os.ReadFile(clientFile)
		if err != nil {
			return fmt.Errorf("read client file: %w", err)
		}
		ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err != nil {
			return fmt.Errorf("listen for redirect: %w", err)
		}
		cfg, err := google.OAuthConfig(clientJSON, fmt.Sprintf("http://localhost:%d/callback", port))
		if err != nil {
			ln.Close()
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		tok, err := google.Authorize(ctx, cfg, ln, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if err := google.SaveToken(tokenFile, tok); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved token to %s\n", tokenFile)
		return nil
	},
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
