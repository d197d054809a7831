package registration

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/payphone/payphone/internal/identity"
	"github.com/payphone/payphone/internal/ledger"
	"github.com/payphone/payphone/internal/logging"
	"github.com/payphone/payphone/internal/notification"
	"github.com/payphone/payphone/internal/phone"
	"github.com/payphone/payphone/internal/wallet"
)

type fixture struct {
	svc    *Service
	ledger ledger.Ledger
	users  *identity.Service
	inbox  *notification.MemoryInbox
	user   identity.User
	signer *wallet.KeySigner
}

func newFixture(t *testing.T, handle func(ledger.Ledger) ledger.Handle) *fixture {
	t.Helper()
	users := identity.NewService(identity.NewMemoryRepository(), logging.Discard())
	user, err := users.Create(context.Background(), identity.NewUser{Username: "alice", Password: "s3cret!"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	l := ledger.NewInMemory()
	inbox := notification.NewMemoryInbox()
	return &fixture{
		svc:    NewService(handle(l), users, inbox, logging.Discard()),
		ledger: l,
		users:  users,
		inbox:  inbox,
		user:   user,
		signer: wallet.NewKeySigner(key),
	}
}

func TestRegisterBindsPhone(t *testing.T) {
	f := newFixture(t, ledger.Loaded)
	ctx := context.Background()

	st, err := f.svc.Register(ctx, f.user.ID, "+91 98765 43211", f.signer)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if st.State != StateSuccess || st.Message != MessageSuccess || st.TxHash == "" {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.Phone != "919876543211" {
		t.Fatalf("expected stripped identifier, got %s", st.Phone)
	}

	addr, err := f.ledger.WalletOf(ctx, big.NewInt(919876543211))
	if err != nil {
		t.Fatalf("wallet of: %v", err)
	}
	if addr != f.signer.Address() {
		t.Fatalf("expected binding to signer, got %s", addr.Hex())
	}

	user, _ := f.users.Get(ctx, f.user.ID)
	if user.PhoneNumber != "919876543211" || user.WalletAddress != f.signer.Address().Hex() {
		t.Fatalf("expected profile update, got %+v", user)
	}
	msgs, _ := f.inbox.Recent(ctx, f.user.ID, 1)
	if len(msgs) != 1 || msgs[0].Kind != notification.KindPhoneRegistered {
		t.Fatalf("expected registration notification, got %+v", msgs)
	}
	if got := f.svc.Status(f.user.ID); got.State != StateSuccess {
		t.Fatalf("expected sticky success, got %s", got.State)
	}
}

func TestRegisterValidationOrder(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, func(ledger.Ledger) ledger.Handle { return ledger.NotLoaded() })
	st, err := f.svc.Register(ctx, f.user.ID, "12-34", nil)
	if !errors.Is(err, phone.ErrInvalidPhone) || st.Message != MessageInvalid {
		t.Fatalf("expected invalid phone first, got %v (%s)", err, st.Message)
	}
	st, err = f.svc.Register(ctx, f.user.ID, "9876543210", nil)
	if !errors.Is(err, wallet.ErrNotConnected) || st.Message != MessageNoWallet {
		t.Fatalf("expected no wallet second, got %v (%s)", err, st.Message)
	}
	st, err = f.svc.Register(ctx, f.user.ID, "9876543210", f.signer)
	if !errors.Is(err, ledger.ErrNotLoaded) || st.Message != MessageNoContract {
		t.Fatalf("expected contract not loaded third, got %v (%s)", err, st.Message)
	}
	if got := f.svc.Status(f.user.ID); got.State != StateError {
		t.Fatalf("expected sticky error, got %s", got.State)
	}
}

func TestRegisterRejectsWhileInProgress(t *testing.T) {
	f := newFixture(t, ledger.Loaded)
	ctx := context.Background()

	st, err := f.svc.Submit(ctx, f.user.ID, "9876543210", f.signer)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.svc.Submit(ctx, f.user.ID, "9876543210", f.signer); !errors.Is(err, ErrInProgress) {
		t.Fatalf("expected in progress, got %v", err)
	}
	if _, err := f.svc.Confirm(ctx, f.user.ID, st); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.Register(ctx, f.user.ID, "9876543211", f.signer); err != nil {
		t.Fatalf("retry after success: %v", err)
	}
}

func TestRegisterIdleByDefault(t *testing.T) {
	f := newFixture(t, ledger.Loaded)
	if st := f.svc.Status("nobody"); st.State != StateIdle {
		t.Fatalf("expected idle, got %s", st.State)
	}
}

type failingNotifier struct{}

func (failingNotifier) Send(context.Context, notification.Message) error {
	return errors.New("inbox unavailable")
}

func TestRegisterLogsNotificationFailure(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	svc := NewService(ledger.Loaded(ledger.NewInMemory()), nil, failingNotifier{}, logger)

	st, err := svc.Register(context.Background(), "u1", "9876543210", wallet.NewKeySigner(key))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if st.State != StateSuccess {
		t.Fatalf("expected success despite notification failure, got %+v", st)
	}
	if out := logs.String(); !strings.Contains(out, "notification failed") || !strings.Contains(out, "inbox unavailable") {
		t.Fatalf("expected warning about the notification, got %q", out)
	}
}
