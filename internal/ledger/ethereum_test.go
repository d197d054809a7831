package ledger

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const testContract = "0x395595376CCEc7C3aC9BC8543F2eF80Bee31F0d9"

type fakeBackend struct {
	mu        sync.Mutex
	callOut   []byte
	callErr   error
	lastCall  ethereum.CallMsg
	sent      []*types.Transaction
	sendErr   error
	receipts  map[common.Hash]*types.Receipt
	notFounds int
}

func (b *fakeBackend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastCall = call
	return b.callOut, b.callErr
}

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 7, nil
}

func (b *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(20_000_000_000), nil
}

func (b *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 50_000, nil
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.notFounds > 0 {
		b.notFounds--
		return nil, ethereum.NotFound
	}
	r, ok := b.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func registry(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	return parsed
}

func newTestLedger(t *testing.T, backend *fakeBackend) *EthereumLedger {
	t.Helper()
	l, err := NewEthereumLedger(backend, testContract, 11155111, time.Millisecond)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return l
}

func TestEthereumLedger_WalletOf(t *testing.T) {
	want := common.HexToAddress("0x1111111111111111111111111111111111111111")
	out, err := registry(t).Methods[methodWalletOf].Outputs.Pack(want)
	if err != nil {
		t.Fatalf("pack output: %v", err)
	}
	backend := &fakeBackend{callOut: out}
	l := newTestLedger(t, backend)

	got, err := l.WalletOf(context.Background(), big.NewInt(9876543210))
	if err != nil {
		t.Fatalf("wallet of: %v", err)
	}
	if got != want {
		t.Fatalf("expected %s, got %s", want.Hex(), got.Hex())
	}

	expectedData, _ := registry(t).Pack(methodWalletOf, big.NewInt(9876543210))
	if string(backend.lastCall.Data) != string(expectedData) {
		t.Fatalf("unexpected call data %x", backend.lastCall.Data)
	}
	if *backend.lastCall.To != common.HexToAddress(testContract) {
		t.Fatalf("call sent to wrong contract %s", backend.lastCall.To.Hex())
	}
}

func TestEthereumLedger_WalletOfCallError(t *testing.T) {
	backend := &fakeBackend{callErr: errors.New("connection refused")}
	l := newTestLedger(t, backend)

	if _, err := l.WalletOf(context.Background(), big.NewInt(1)); err == nil {
		t.Fatalf("expected call error")
	}
}

func TestEthereumLedger_SendToPhoneSignsPayableCall(t *testing.T) {
	backend := &fakeBackend{}
	l := newTestLedger(t, backend)
	signer := newKeySigner(t)
	wei := big.NewInt(500_000_000_000_000_000)

	hash, err := l.SendToPhone(context.Background(), signer, big.NewInt(9876543210), wei)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(backend.sent))
	}
	tx := backend.sent[0]
	if tx.Hash().Hex() != hash {
		t.Fatalf("returned hash %s does not match broadcast %s", hash, tx.Hash().Hex())
	}
	if tx.Value().Cmp(wei) != 0 {
		t.Fatalf("expected value %s, got %s", wei, tx.Value())
	}
	if tx.Nonce() != 7 {
		t.Fatalf("expected pending nonce 7, got %d", tx.Nonce())
	}
	if tx.Gas() != 60_000 {
		t.Fatalf("expected gas with headroom 60000, got %d", tx.Gas())
	}
	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(11155111)), tx)
	if err != nil {
		t.Fatalf("recover sender: %v", err)
	}
	if from != signer.Address() {
		t.Fatalf("expected sender %s, got %s", signer.Address().Hex(), from.Hex())
	}
	expectedData, _ := registry(t).Pack(methodSendToPhone, big.NewInt(9876543210))
	if string(tx.Data()) != string(expectedData) {
		t.Fatalf("unexpected call data %x", tx.Data())
	}
}

func TestEthereumLedger_SendRejectsZeroValue(t *testing.T) {
	l := newTestLedger(t, &fakeBackend{})
	if _, err := l.SendToPhone(context.Background(), newKeySigner(t), big.NewInt(1), big.NewInt(0)); !errors.Is(err, ErrSubmission) {
		t.Fatalf("expected submission error, got %v", err)
	}
}

func TestEthereumLedger_BroadcastFailure(t *testing.T) {
	l := newTestLedger(t, &fakeBackend{sendErr: errors.New("insufficient funds for gas")})
	_, err := l.RegisterPhone(context.Background(), newKeySigner(t), big.NewInt(919876543211))
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("expected submission error, got %v", err)
	}
}

func TestEthereumLedger_WaitConfirmed(t *testing.T) {
	ok := common.HexToHash("0x01")
	reverted := common.HexToHash("0x02")
	backend := &fakeBackend{
		notFounds: 2,
		receipts: map[common.Hash]*types.Receipt{
			ok:       {Status: types.ReceiptStatusSuccessful},
			reverted: {Status: types.ReceiptStatusFailed},
		},
	}
	l := newTestLedger(t, backend)
	ctx := context.Background()

	if err := l.WaitConfirmed(ctx, ok.Hex()); err != nil {
		t.Fatalf("expected confirmation after pending polls, got %v", err)
	}
	if err := l.WaitConfirmed(ctx, reverted.Hex()); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestEthereumLedger_WaitConfirmedHonoursContext(t *testing.T) {
	l := newTestLedger(t, &fakeBackend{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.WaitConfirmed(ctx, "0x03"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNewEthereumLedgerValidatesAddress(t *testing.T) {
	if _, err := NewEthereumLedger(&fakeBackend{}, "not-an-address", 1, 0); err == nil {
		t.Fatalf("expected invalid address error")
	}
}
