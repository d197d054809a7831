package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SeedBinding is a test helper that binds phone to addr when using the in-memory ledger.
func SeedBinding(l Ledger, phone string, addr common.Address) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.bindings[phone] = addr
	}
}

// Received returns the total wei credited to addr by the in-memory ledger.
func Received(l Ledger, addr common.Address) *big.Int {
	total := new(big.Int)
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.RLock()
		defer mem.mu.RUnlock()
		if v, ok := mem.received[addr]; ok {
			total.Set(v)
		}
	}
	return total
}
