// Package resolver maps phone identifiers to wallets through the ledger and
// keeps the per-user compose state that drives automatic lookups.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/payphone/payphone/internal/ledger"
	"github.com/payphone/payphone/internal/logging"
	"github.com/payphone/payphone/internal/phone"
)

// Kind classifies a lookup outcome.
type Kind string

const (
	KindPlaceholder   Kind = "placeholder"
	KindResolved      Kind = "resolved"
	KindNotRegistered Kind = "not_registered"
	KindLookupFailed  Kind = "lookup_failed"
)

// Display texts for the non-address outcomes.
const (
	PlaceholderText   = "WALLETADDRESS"
	NotRegisteredText = "Not Registered"
	NotFoundText      = "Not Found"
)

// Result is the outcome of one lookup. Err is set only for KindLookupFailed.
type Result struct {
	Phone  string
	Wallet common.Address
	Kind   Kind
	Err    error
}

// Placeholder is the result shown before any qualifying lookup.
func Placeholder(digits string) Result {
	return Result{Phone: digits, Kind: KindPlaceholder}
}

// Display is what the user sees in the wallet field.
func (r Result) Display() string {
	switch r.Kind {
	case KindResolved:
		return r.Wallet.Hex()
	case KindNotRegistered:
		return NotRegisteredText
	case KindLookupFailed:
		return NotFoundText
	default:
		return PlaceholderText
	}
}

// HasResolution reports whether the result names a real wallet a payment can target.
func (r Result) HasResolution() bool {
	return r.Kind == KindResolved && r.Wallet != ledger.ZeroAddress
}

// Resolver reads phone bindings from the ledger.
type Resolver struct {
	handle ledger.Handle
	logger *slog.Logger
}

// New builds a resolver over handle.
func New(handle ledger.Handle, logger *slog.Logger) *Resolver {
	return &Resolver{handle: handle, logger: logging.Component(logger, "resolver")}
}

// Resolve looks up the wallet bound to digits. It never panics or returns an
// error; failures come back as KindLookupFailed.
func (r *Resolver) Resolve(ctx context.Context, digits string) Result {
	l, ok := r.handle.Get()
	if !ok {
		return Result{Phone: digits, Kind: KindLookupFailed, Err: ledger.ErrNotLoaded}
	}
	id, err := phone.Encode(digits)
	if err != nil {
		return Result{Phone: digits, Kind: KindLookupFailed, Err: err}
	}
	addr, err := l.WalletOf(ctx, id)
	if err != nil {
		r.logger.Warn("wallet lookup failed", "phone", digits, "error", err)
		return Result{Phone: digits, Kind: KindLookupFailed, Err: fmt.Errorf("lookup %s: %w", digits, err)}
	}
	if addr == ledger.ZeroAddress {
		return Result{Phone: digits, Kind: KindNotRegistered}
	}
	return Result{Phone: digits, Wallet: addr, Kind: KindResolved}
}
