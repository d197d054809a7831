package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type keySigner struct {
	key *ecdsa.PrivateKey
}

func newKeySigner(t *testing.T) *keySigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &keySigner{key: key}
}

func (s *keySigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

func (s *keySigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, chainID)
	if err != nil {
		return nil, err
	}
	return opts.Signer(s.Address(), tx)
}

func TestInMemoryLedger_RegisterThenLookup(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	signer := newKeySigner(t)

	phoneID := big.NewInt(919876543211)
	addr, err := l.WalletOf(ctx, phoneID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if addr != ZeroAddress {
		t.Fatalf("expected zero address before registration, got %s", addr.Hex())
	}

	hash, err := l.RegisterPhone(ctx, signer, phoneID)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := l.WaitConfirmed(ctx, hash); err != nil {
		t.Fatalf("confirm register: %v", err)
	}

	addr, err = l.WalletOf(ctx, phoneID)
	if err != nil {
		t.Fatalf("lookup after register: %v", err)
	}
	if addr != signer.Address() {
		t.Fatalf("expected binding to %s, got %s", signer.Address().Hex(), addr.Hex())
	}
}

func TestInMemoryLedger_SendCreditsReceiver(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	receiver := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	SeedBinding(l, "9876543210", receiver)

	hash, err := l.SendToPhone(ctx, newKeySigner(t), big.NewInt(9876543210), big.NewInt(500))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := l.WaitConfirmed(ctx, hash); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got := Received(l, receiver); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected 500 wei credited, got %s", got)
	}
}

func TestInMemoryLedger_SendToUnboundPhoneIsRejected(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	hash, err := l.SendToPhone(ctx, newKeySigner(t), big.NewInt(1234567890), big.NewInt(1))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := l.WaitConfirmed(ctx, hash); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestInMemoryLedger_UnknownHash(t *testing.T) {
	l := NewInMemory()
	if err := l.WaitConfirmed(context.Background(), "0xdead"); !errors.Is(err, ErrUnknownTransaction) {
		t.Fatalf("expected unknown transaction, got %v", err)
	}
}

func TestInMemoryLedger_ConcurrentSendsHaveDistinctHashes(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	receiver := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	SeedBinding(l, "5550001111", receiver)
	signer := newKeySigner(t)

	const workers = 10
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		hashes = map[string]struct{}{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hash, err := l.SendToPhone(ctx, signer, big.NewInt(5550001111), big.NewInt(100))
			if err != nil {
				t.Errorf("send %d failed: %v", i, err)
				return
			}
			mu.Lock()
			hashes[hash] = struct{}{}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if len(hashes) != workers {
		t.Fatalf("expected %d distinct hashes, got %d", workers, len(hashes))
	}
	if got := Received(l, receiver); got.Cmp(big.NewInt(workers*100)) != 0 {
		t.Fatalf("expected %d wei, got %s", workers*100, got)
	}
}

func TestHandle(t *testing.T) {
	if _, ok := NotLoaded().Get(); ok {
		t.Fatalf("expected NotLoaded handle to report not loaded")
	}
	var zero Handle
	if zero.IsLoaded() {
		t.Fatalf("zero handle must be NotLoaded")
	}
	l, ok := Loaded(NewInMemory()).Get()
	if !ok || l == nil {
		t.Fatalf("expected loaded ledger")
	}
	if Loaded(nil).IsLoaded() {
		t.Fatalf("Loaded(nil) must be NotLoaded")
	}
}
