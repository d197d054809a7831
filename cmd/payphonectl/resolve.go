package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/payphone/payphone/internal/explorer"
	"github.com/payphone/payphone/internal/infra"
	"github.com/payphone/payphone/internal/phone"
	"github.com/payphone/payphone/internal/resolver"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <phone>",
	Short: "Show the wallet bound to a phone number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		digits, err := phone.Normalize(args[0])
		if err != nil {
			return fmt.Errorf("%q: %w", args[0], err)
		}
		ctx := cmd.Context()
		handle, closeLedger := infra.OpenLedger(ctx, cfg, logger)
		defer closeLedger()

		res := resolver.New(handle, logger).Resolve(ctx, digits)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %s\n", digits, res.Display())
		if res.Kind == resolver.KindResolved {
			fmt.Fprintln(out, explorer.AddressURL(cfg.ExplorerURL, res.Wallet.Hex()))
		}
		if res.Err != nil {
			return res.Err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
