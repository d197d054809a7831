package payments

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/payphone/payphone/internal/history"
	"github.com/payphone/payphone/internal/identity"
	"github.com/payphone/payphone/internal/ledger"
	"github.com/payphone/payphone/internal/logging"
	"github.com/payphone/payphone/internal/notification"
	"github.com/payphone/payphone/internal/phone"
	"github.com/payphone/payphone/internal/resolver"
	"github.com/payphone/payphone/internal/wallet"
)

var walletW = common.HexToAddress("0x1111111111111111111111111111111111111111")

// fixedLedger resolves every phone to walletW and answers with a fixed hash.
type fixedLedger struct {
	hash      string
	sendErr   error
	waitErr   error
	mu        sync.Mutex
	sentValue *big.Int
}

func (l *fixedLedger) WalletOf(context.Context, *big.Int) (common.Address, error) {
	return walletW, nil
}

func (l *fixedLedger) SendToPhone(_ context.Context, _ ledger.Signer, _ *big.Int, wei *big.Int) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sentValue = wei
	if l.sendErr != nil {
		return "", l.sendErr
	}
	return l.hash, nil
}

func (l *fixedLedger) RegisterPhone(context.Context, ledger.Signer, *big.Int) (string, error) {
	return l.hash, nil
}

func (l *fixedLedger) WaitConfirmed(context.Context, string) error {
	return l.waitErr
}

type harness struct {
	svc     *Service
	history *history.Service
	user    identity.User
	signer  ledger.Signer
	states  []State
}

func newHarness(t *testing.T, l ledger.Ledger) *harness {
	t.Helper()
	users := identity.NewService(identity.NewMemoryRepository(), logging.Discard())
	user, err := users.Create(context.Background(), identity.NewUser{Username: "alice", Password: "s3cret!", PhoneNumber: "9876500000"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	hist := history.NewService(history.NewMemoryRepository(users), logging.Discard())
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	h := &harness{history: hist, user: user, signer: wallet.NewKeySigner(key)}
	tracker := ObserverFunc(func(_ context.Context, ev Event) { h.states = append(h.states, ev.To) })
	h.svc = NewService(ledger.Loaded(l), logging.Discard(), NewHistoryRecorder(hist, logging.Discard()), tracker)
	return h
}

func (h *harness) payment(res resolver.Result) PendingPayment {
	return PendingPayment{
		UserID:        h.user.ID,
		SenderPhone:   h.user.PhoneNumber,
		ReceiverPhone: "9876543210",
		Resolution:    res,
		Amount:        "0.5",
		Unit:          UnitEther,
		Signer:        h.signer,
	}
}

func resolved(digits string) resolver.Result {
	return resolver.Result{Phone: digits, Wallet: walletW, Kind: resolver.KindResolved}
}

func TestSendRecordsSuccess(t *testing.T) {
	l := &fixedLedger{hash: "0xabc"}
	h := newHarness(t, l)
	ctx := context.Background()

	attempt, err := h.svc.Send(ctx, h.payment(resolved("9876543210")))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if attempt.State != StateSuccess || attempt.TxHash != "0xabc" {
		t.Fatalf("unexpected attempt %+v", attempt)
	}
	if l.sentValue.String() != "500000000000000000" {
		t.Fatalf("expected 0.5 ether in wei, got %s", l.sentValue)
	}

	record, err := h.history.Get(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Status != history.StatusSuccess || record.TxHash != "0xabc" {
		t.Fatalf("unexpected record %+v", record)
	}
	if !record.Amount.Equal(decimal.RequireFromString("0.5")) || record.ReceiverWallet != walletW.Hex() || record.SenderPhone != "9876500000" {
		t.Fatalf("unexpected record contents %+v", record)
	}

	want := []State{StateValidating, StateSending, StateSending, StateSuccess}
	if len(h.states) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, h.states)
	}
	for i := range want {
		if h.states[i] != want[i] {
			t.Fatalf("expected transitions %v, got %v", want, h.states)
		}
	}
}

func TestSendToUnregisteredReceiverCreatesNoRecord(t *testing.T) {
	h := newHarness(t, &fixedLedger{hash: "0xabc"})
	ctx := context.Background()

	for _, res := range []resolver.Result{
		{Phone: "9876543210", Kind: resolver.KindNotRegistered},
		{Phone: "9876543210", Kind: resolver.KindLookupFailed, Err: errors.New("timeout")},
		resolver.Placeholder("9876543210"),
		{Phone: "9876543210", Kind: resolver.KindResolved, Wallet: ledger.ZeroAddress},
		resolved("1111111111"),
	} {
		attempt, err := h.svc.Submit(ctx, h.payment(res))
		if !errors.Is(err, ErrUnregisteredReceiver) {
			t.Fatalf("expected unregistered receiver for %+v, got %v", res, err)
		}
		if attempt.State != StateError {
			t.Fatalf("expected error state, got %s", attempt.State)
		}
	}
	records, err := h.history.List(ctx, h.user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestValidationOrder(t *testing.T) {
	h := newHarness(t, &fixedLedger{hash: "0xabc"})
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(p *PendingPayment)
		want   error
	}{
		{"short phone and no wallet", func(p *PendingPayment) {
			p.ReceiverPhone = "98765"
			p.Signer = nil
		}, phone.ErrInvalidPhone},
		{"dashed phone", func(p *PendingPayment) {
			p.ReceiverPhone = "123-456-7890"
			p.Resolution = resolved("1234567890")
		}, phone.ErrInvalidPhone},
		{"letters in phone", func(p *PendingPayment) {
			p.ReceiverPhone = "98765abcde"
			p.Signer = nil
		}, phone.ErrInvalidPhone},
		{"unregistered and no amount", func(p *PendingPayment) {
			p.Resolution = resolver.Result{Phone: "9876543210", Kind: resolver.KindNotRegistered}
			p.Amount = ""
		}, ErrUnregisteredReceiver},
		{"no amount and no wallet", func(p *PendingPayment) {
			p.Amount = "  "
			p.Signer = nil
		}, ErrMissingAmount},
		{"no wallet", func(p *PendingPayment) {
			p.Signer = nil
		}, wallet.ErrNotConnected},
		{"unknown unit", func(p *PendingPayment) {
			p.Unit = "gwei"
		}, ErrUnsupportedUnit},
		{"zero amount", func(p *PendingPayment) {
			p.Amount = "0"
		}, ErrInvalidAmount},
	}
	for _, tc := range cases {
		p := h.payment(resolved("9876543210"))
		tc.mutate(&p)
		if _, err := h.svc.Submit(ctx, p); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestWeiPaymentIsRecordedInEther(t *testing.T) {
	l := &fixedLedger{hash: "0xabc"}
	h := newHarness(t, l)
	ctx := context.Background()

	p := h.payment(resolved("9876543210"))
	p.Amount = "500000000000000000"
	p.Unit = "WEI"
	attempt, err := h.svc.Send(ctx, p)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if attempt.Unit != UnitWei || attempt.Wei != "500000000000000000" {
		t.Fatalf("unexpected attempt %+v", attempt)
	}
	if l.sentValue.String() != "500000000000000000" {
		t.Fatalf("expected wei passed through, got %s", l.sentValue)
	}
	record, err := h.history.Get(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if !record.Amount.Equal(decimal.RequireFromString("0.5")) || record.Unit != UnitEther || record.Status != history.StatusSuccess {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestSubmitNormalizesUnit(t *testing.T) {
	h := newHarness(t, &fixedLedger{hash: "0xabc"})
	p := h.payment(resolved("9876543210"))
	p.Unit = " Ether "
	attempt, err := h.svc.Submit(context.Background(), p)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if attempt.Unit != UnitEther {
		t.Fatalf("expected unit %q, got %q", UnitEther, attempt.Unit)
	}
}

func TestSubmitWithoutLedger(t *testing.T) {
	h := newHarness(t, &fixedLedger{})
	h.svc.handle = ledger.NotLoaded()

	if _, err := h.svc.Submit(context.Background(), h.payment(resolved("9876543210"))); !errors.Is(err, ledger.ErrNotLoaded) {
		t.Fatalf("expected not loaded, got %v", err)
	}
}

func TestSubmissionErrorMarksRecordError(t *testing.T) {
	l := &fixedLedger{sendErr: errors.New("user rejected the request")}
	h := newHarness(t, l)
	ctx := context.Background()

	attempt, err := h.svc.Send(ctx, h.payment(resolved("9876543210")))
	if err == nil {
		t.Fatalf("expected submission error")
	}
	record, err := h.history.Get(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Status != history.StatusError || record.TxHash != "" {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestRejectionMarksRecordErrorButKeepsHash(t *testing.T) {
	l := &fixedLedger{hash: "0xdead", waitErr: ledger.ErrRejected}
	h := newHarness(t, l)
	ctx := context.Background()

	attempt, err := h.svc.Send(ctx, h.payment(resolved("9876543210")))
	if !errors.Is(err, ledger.ErrRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	record, _ := h.history.Get(ctx, attempt.ID)
	if record.Status != history.StatusError || record.TxHash != "0xdead" {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestSendThroughInMemoryLedger(t *testing.T) {
	l := ledger.NewInMemory()
	ledger.SeedBinding(l, "9876543210", walletW)
	h := newHarness(t, l)
	ctx := context.Background()

	attempt, err := h.svc.Send(ctx, h.payment(resolved("9876543210")))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := ledger.Received(l, walletW); got.String() != "500000000000000000" {
		t.Fatalf("expected receiver credited, got %s", got)
	}
	if attempt.TxHash == "" {
		t.Fatalf("expected tx hash")
	}
}

func TestConfirmRequiresSubmittedAttempt(t *testing.T) {
	h := newHarness(t, &fixedLedger{hash: "0xabc"})
	if _, err := h.svc.Confirm(context.Background(), Attempt{ID: "x", State: StateIdle}); err == nil {
		t.Fatalf("expected error for unsubmitted attempt")
	}
}

func TestOptimisticNotifierOrdersToastBeforeOutcome(t *testing.T) {
	inbox := notification.NewMemoryInbox()
	optimistic := NewOptimisticNotifier(inbox, 100*time.Millisecond, logging.Discard())
	l := &fixedLedger{hash: "0xabc"}
	svc := NewService(ledger.Loaded(l), logging.Discard(), optimistic)
	key, _ := crypto.GenerateKey()
	ctx := context.Background()

	_, err := svc.Send(ctx, PendingPayment{
		UserID:        "u1",
		ReceiverPhone: "9876543210",
		Resolution:    resolved("9876543210"),
		Amount:        "1",
		Signer:        wallet.NewKeySigner(key),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if got, _ := inbox.Recent(ctx, "u1", 10); len(got) != 0 {
		t.Fatalf("expected nothing before the toast delay, got %+v", got)
	}

	deadline := time.Now().Add(time.Second)
	var got []notification.Message
	for time.Now().Before(deadline) {
		got, _ = inbox.Recent(ctx, "u1", 10)
		if len(got) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(got) != 2 {
		t.Fatalf("expected toast and outcome, got %+v", got)
	}
	// Recent is newest first.
	if got[1].Body != MessageSent || got[1].TxHash != "0xabc" || got[0].Kind != notification.KindPaymentConfirmed || got[0].TxHash != "0xabc" {
		t.Fatalf("unexpected notifications %+v", got)
	}
}

func TestOptimisticNotifierReportsFailureAfterToast(t *testing.T) {
	inbox := notification.NewMemoryInbox()
	optimistic := NewOptimisticNotifier(inbox, time.Millisecond, logging.Discard())
	ctx := context.Background()
	attempt := Attempt{ID: "a1", UserID: "u1"}

	optimistic.Observe(ctx, Event{Attempt: attempt, From: StateValidating, To: StateSending})
	time.Sleep(20 * time.Millisecond)
	attempt.Err = ledger.ErrRejected
	optimistic.Observe(ctx, Event{Attempt: attempt, From: StateSending, To: StateError})

	got, _ := inbox.Recent(ctx, "u1", 10)
	if len(got) != 2 || got[0].Kind != notification.KindPaymentFailed || got[1].Kind != notification.KindPaymentPending {
		t.Fatalf("unexpected notifications %+v", got)
	}
}
