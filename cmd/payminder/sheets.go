package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"payminder/internal/config"
	gsheet "payminder/internal/ledger/google"
)

func newSheetsLoginCmd(opts *options) *cobra.Command {
	var (
		port      string
		tokenFile string
	)
	cmd := &cobra.Command{
		Use:   "sheets-login",
		Short: "Authorize access to Google Sheets as your user",
		Long: "Run the browser consent flow with the OAuth client in GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE " +
			"and save the token. Point GOOGLE_OAUTH_TOKEN_FILE at it to use the sheets backend without a service account.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.logger(cmd)
			oauthCfg, err := gsheet.OAuthConfigFromEnv()
			if err != nil {
				return err
			}
			if tokenFile == "" {
				tokenFile = os.Getenv(gsheet.EnvOAuthTokenFile)
			}
			if tokenFile == "" {
				tokenFile = filepath.Join(config.ConfigDir(), "google-token.json")
			}

			ln, err := net.Listen("tcp", "localhost:"+port)
			if err != nil {
				return fmt.Errorf("listen for oauth redirect: %w", err)
			}
			out := cmd.OutOrStdout()
			tok, err := gsheet.Authorize(cmd.Context(), oauthCfg, ln, func(url string) {
				fmt.Fprintf(out, "Open this URL to authorize:\n%s\n", url)
			})
			if err != nil {
				return err
			}
			if err := gsheet.SaveToken(tokenFile, tok); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved token to %s\n", tokenFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "8085", "Local port for the OAuth redirect")
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "Where to save the token (default GOOGLE_OAUTH_TOKEN_FILE or the config dir)")
	return cmd
}
