package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type inMemoryTx struct {
	rejected bool
	reason   string
}

type inMemoryLedger struct {
	mu       sync.RWMutex
	bindings map[string]common.Address
	received map[common.Address]*big.Int
	txs      map[string]inMemoryTx
	nonce    uint64
}

// NewInMemory creates a concurrency-safe in-memory registry useful for
// development and unit tests. Transactions confirm immediately; a transfer
// to an unbound phone is rejected the way the contract reverts it.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		bindings: make(map[string]common.Address),
		received: make(map[common.Address]*big.Int),
		txs:      make(map[string]inMemoryTx),
	}
}

func (l *inMemoryLedger) WalletOf(_ context.Context, phoneID *big.Int) (common.Address, error) {
	if phoneID == nil {
		return common.Address{}, fmt.Errorf("phone identifier is required")
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bindings[phoneID.String()], nil
}

func (l *inMemoryLedger) SendToPhone(_ context.Context, signer Signer, phoneID, wei *big.Int) (string, error) {
	if signer == nil {
		return "", fmt.Errorf("%w: no signer", ErrSubmission)
	}
	if phoneID == nil || wei == nil || wei.Sign() <= 0 {
		return "", fmt.Errorf("%w: value must be positive", ErrSubmission)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	hash := l.nextHash(signer.Address(), phoneID)
	to, ok := l.bindings[phoneID.String()]
	if !ok {
		l.txs[hash] = inMemoryTx{rejected: true, reason: "phone number not registered"}
		return hash, nil
	}

	balance, ok := l.received[to]
	if !ok {
		balance = new(big.Int)
		l.received[to] = balance
	}
	balance.Add(balance, wei)
	l.txs[hash] = inMemoryTx{}
	return hash, nil
}

func (l *inMemoryLedger) RegisterPhone(_ context.Context, signer Signer, phoneID *big.Int) (string, error) {
	if signer == nil {
		return "", fmt.Errorf("%w: no signer", ErrSubmission)
	}
	if phoneID == nil {
		return "", fmt.Errorf("%w: phone identifier is required", ErrSubmission)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	hash := l.nextHash(signer.Address(), phoneID)
	l.bindings[phoneID.String()] = signer.Address()
	l.txs[hash] = inMemoryTx{}
	return hash, nil
}

func (l *inMemoryLedger) WaitConfirmed(ctx context.Context, txHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	tx, ok := l.txs[txHash]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTransaction, txHash)
	}
	if tx.rejected {
		return fmt.Errorf("%w: %s", ErrRejected, tx.reason)
	}
	return nil
}

// nextHash derives a unique transaction hash. Callers hold l.mu.
func (l *inMemoryLedger) nextHash(from common.Address, phoneID *big.Int) string {
	l.nonce++
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], l.nonce)
	return crypto.Keccak256Hash(from.Bytes(), phoneID.Bytes(), nonce[:]).Hex()
}
