package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/payphone/payphone/internal/infra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the users, contacts and transactions tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := infra.Migrate(ctx, db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
