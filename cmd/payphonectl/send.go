package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/payphone/payphone/internal/explorer"
	"github.com/payphone/payphone/internal/history"
	"github.com/payphone/payphone/internal/identity"
	"github.com/payphone/payphone/internal/infra"
	"github.com/payphone/payphone/internal/payments"
	"github.com/payphone/payphone/internal/phone"
	"github.com/payphone/payphone/internal/resolver"
)

var (
	sendKeys keyFlags
	sendUnit string
	sendUser string
)

var sendCmd = &cobra.Command{
	Use:   "send <phone> <amount>",
	Short: "Pay the wallet bound to a phone number",
	Long: `send resolves the phone, then transfers the amount to its wallet.

With --user and DATABASE_URL set, the payment is recorded in that user's
transaction history.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		signer, err := sendKeys.signer(ctx)
		if err != nil {
			return err
		}
		handle, closeLedger := infra.OpenLedger(ctx, cfg, logger)
		defer closeLedger()

		userID := cliUser
		var observers []payments.Observer
		if sendUser != "" {
			db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			user, err := identity.NewService(identity.NewPostgresRepository(db), logger).GetByUsername(ctx, sendUser)
			if err != nil {
				return fmt.Errorf("user %q: %w", sendUser, err)
			}
			userID = user.ID
			records := history.NewService(history.NewPostgresRepository(db), logger)
			observers = append(observers, payments.NewHistoryRecorder(records, logger))
		}

		receiver := phone.Digits(args[0])
		resolution := resolver.New(handle, logger).Resolve(ctx, receiver)
		svc := payments.NewService(handle, logger, observers...)
		attempt, err := svc.Submit(ctx, payments.PendingPayment{
			UserID:        userID,
			ReceiverPhone: receiver,
			Resolution:    resolution,
			Amount:        args[1],
			Unit:          sendUnit,
			Signer:        signer,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "sending %s %s (%s wei) to %s\n", attempt.Amount, attempt.Unit, attempt.Wei, attempt.ReceiverWallet)
		fmt.Fprintln(out, explorer.TxURL(cfg.ExplorerURL, attempt.TxHash))

		confirmCtx, cancel := context.WithTimeout(ctx, cfg.ConfirmTimeout)
		defer cancel()
		if _, err := svc.Confirm(confirmCtx, attempt); err != nil {
			return err
		}
		fmt.Fprintln(out, payments.MessageSent)
		return nil
	},
}

func init() {
	sendKeys.register(sendCmd)
	sendCmd.Flags().StringVar(&sendUnit, "unit", payments.UnitEther, "amount unit: ether or wei")
	sendCmd.Flags().StringVar(&sendUser, "user", "", "username whose history records the payment")
	rootCmd.AddCommand(sendCmd)
}
