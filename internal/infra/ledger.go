package infra

import (
	"context"
	"log/slog"

	"github.com/payphone/payphone/internal/config"
	"github.com/payphone/payphone/internal/ledger"
)

// OpenLedger returns the registry handle for cfg together with a close func.
// With ETH_RPC_URL set it dials the node and binds the contract; a dial or
// bind failure yields a NotLoaded handle so the API still serves lookups with
// "Contract not loaded." errors. Without an RPC URL, development runs get an
// in-memory registry and other environments get NotLoaded.
func OpenLedger(ctx context.Context, cfg config.Config, logger *slog.Logger) (ledger.Handle, func()) {
	noop := func() {}
	if cfg.EthRPCURL == "" {
		if cfg.IsDev() {
			logger.Warn("ETH_RPC_URL not set, using in-memory registry")
			return ledger.Loaded(ledger.NewInMemory()), noop
		}
		logger.Error("ETH_RPC_URL not set, contract not loaded")
		return ledger.NotLoaded(), noop
	}

	client, err := NewEthClient(ctx, cfg.EthRPCURL, cfg.ChainID)
	if err != nil {
		logger.Error("connect eth rpc", "error", err)
		return ledger.NotLoaded(), noop
	}
	registry, err := ledger.NewEthereumLedger(client, cfg.ContractAddress, cfg.ChainID, cfg.ReceiptPollInterval)
	if err != nil {
		client.Close()
		logger.Error("bind registry contract", "address", cfg.ContractAddress, "error", err)
		return ledger.NotLoaded(), noop
	}
	logger.Info("registry contract loaded", "address", cfg.ContractAddress, "chain_id", cfg.ChainID)
	return ledger.Loaded(registry), client.Close
}
