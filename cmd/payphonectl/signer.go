package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/payphone/payphone/internal/ledger"
	"github.com/payphone/payphone/internal/wallet"
)

const cliUser = "payphonectl"

type keyFlags struct {
	keystore   string
	passphrase string
	privateKey string
}

func (f *keyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.keystore, "keystore", "", "path to an encrypted keystore JSON file")
	cmd.Flags().StringVar(&f.passphrase, "passphrase", "", "keystore passphrase (default $PAYPHONE_PASSPHRASE)")
	cmd.Flags().StringVar(&f.privateKey, "private-key", "", "hex private key, development only")
}

// signer unlocks the key named by the flags through the wallet service.
func (f *keyFlags) signer(ctx context.Context) (ledger.Signer, error) {
	in := wallet.ConnectInput{PrivateKey: f.privateKey, Passphrase: f.passphrase}
	if in.Passphrase == "" {
		in.Passphrase = os.Getenv("PAYPHONE_PASSPHRASE")
	}
	if f.keystore != "" {
		raw, err := os.ReadFile(f.keystore)
		if err != nil {
			return nil, fmt.Errorf("read keystore: %w", err)
		}
		in.Keystore = string(raw)
	}
	wallets := wallet.NewService(nil, nil, cfg.IsDev(), logger)
	if _, err := wallets.Connect(ctx, cliUser, in); err != nil {
		return nil, err
	}
	s, _ := wallets.Signer(cliUser)
	return s, nil
}
