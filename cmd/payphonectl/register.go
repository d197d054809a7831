package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/payphone/payphone/internal/explorer"
	"github.com/payphone/payphone/internal/infra"
	"github.com/payphone/payphone/internal/notification"
	"github.com/payphone/payphone/internal/registration"
)

var registerKeys keyFlags

var registerCmd = &cobra.Command{
	Use:   "register <phone>",
	Short: "Bind a phone number to the signing wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		signer, err := registerKeys.signer(ctx)
		if err != nil {
			return err
		}
		handle, closeLedger := infra.OpenLedger(ctx, cfg, logger)
		defer closeLedger()

		svc := registration.NewService(handle, nil, notification.NewLoggerNotifier(logger), logger)
		out := cmd.OutOrStdout()
		st, err := svc.Submit(ctx, cliUser, args[0], signer)
		if err != nil {
			return fmt.Errorf("%s: %w", st.Message, err)
		}
		fmt.Fprintf(out, "submitted %s\n", explorer.TxURL(cfg.ExplorerURL, st.TxHash))

		confirmCtx, cancel := context.WithTimeout(ctx, cfg.ConfirmTimeout)
		defer cancel()
		st, err = svc.Confirm(confirmCtx, cliUser, st)
		if err != nil {
			return fmt.Errorf("%s: %w", st.Message, err)
		}
		fmt.Fprintf(out, "%s %s -> %s\n", st.Message, st.Phone, st.Wallet)
		return nil
	},
}

func init() {
	registerKeys.register(registerCmd)
	rootCmd.AddCommand(registerCmd)
}
