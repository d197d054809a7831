// Package ledger is the gateway to the on-chain phone registry: it reads
// phone to wallet bindings and submits payable transfers and registrations.
package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrNotLoaded indicates no contract handle is available yet.
	ErrNotLoaded = errors.New("contract not loaded")

	// ErrSubmission wraps failures while preparing, signing or broadcasting a
	// transaction.
	ErrSubmission = errors.New("transaction submission failed")

	// ErrRejected indicates the ledger mined the transaction but reverted it.
	ErrRejected = errors.New("transaction rejected by ledger")

	// ErrUnknownTransaction is returned when confirming a hash the ledger never saw.
	ErrUnknownTransaction = errors.New("unknown transaction")
)

// ZeroAddress is the sentinel the registry returns for phones with no binding.
var ZeroAddress = common.Address{}

// Signer authorises transactions on behalf of a connected account.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Ledger defines the contract implemented by ledger backends (e.g. an Ethereum node).
type Ledger interface {
	// WalletOf maps a phone identifier to its bound wallet, ZeroAddress when unbound.
	WalletOf(ctx context.Context, phoneID *big.Int) (common.Address, error)
	// SendToPhone submits a payable transfer of wei to the wallet bound to phoneID.
	SendToPhone(ctx context.Context, signer Signer, phoneID, wei *big.Int) (string, error)
	// RegisterPhone binds phoneID to the signer's address.
	RegisterPhone(ctx context.Context, signer Signer, phoneID *big.Int) (string, error)
	// WaitConfirmed blocks until txHash is mined. It returns nil for a
	// successful receipt and ErrRejected for a reverted one.
	WaitConfirmed(ctx context.Context, txHash string) error
}

// Handle is either Loaded with a Ledger or NotLoaded. The zero value is NotLoaded.
type Handle struct {
	ledger Ledger
}

// Loaded wraps a ready ledger. A nil ledger yields NotLoaded.
func Loaded(l Ledger) Handle {
	return Handle{ledger: l}
}

// NotLoaded returns an empty handle.
func NotLoaded() Handle {
	return Handle{}
}

// Get returns the ledger and whether it is loaded.
func (h Handle) Get() (Ledger, bool) {
	return h.ledger, h.ledger != nil
}

// IsLoaded reports whether the handle carries a ledger.
func (h Handle) IsLoaded() bool {
	return h.ledger != nil
}
