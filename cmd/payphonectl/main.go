// Command payphonectl is the operator CLI for the PayPhone registry: it
// migrates the schema, resolves phones, and registers or pays phones from a
// local key.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/payphone/payphone/internal/config"
	"github.com/payphone/payphone/internal/logging"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "payphonectl",
	Short: "Resolve, register and pay phone numbers on the PayPhone registry",
	Long: `payphonectl talks to the same registry contract and database as the API.

Configuration comes from the environment (and a .env file when present):
ETH_RPC_URL, CHAIN_ID, CONTRACT_ADDRESS, EXPLORER_URL and DATABASE_URL.
Transactions are signed with a keystore file (--keystore, passphrase from
--passphrase or PAYPHONE_PASSPHRASE) or, in development, a hex private key.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger = logging.New(cfg.LogLevel, "payphonectl")
		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
