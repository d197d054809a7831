// Package payments validates and submits phone-addressed transfers and
// tracks each attempt until the ledger confirms or rejects it.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/payphone/payphone/internal/ledger"
	"github.com/payphone/payphone/internal/logging"
	"github.com/payphone/payphone/internal/phone"
	"github.com/payphone/payphone/internal/resolver"
	"github.com/payphone/payphone/internal/wallet"
)

var (
	// ErrUnregisteredReceiver is returned when the receiver has no resolved wallet.
	ErrUnregisteredReceiver = errors.New("receiver phone number not registered")
	// ErrMissingAmount is returned when no amount was entered.
	ErrMissingAmount = errors.New("amount is required")
)

// State is a step of the payment state machine.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSending    State = "sending"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// PendingPayment is a user's request to send Amount of Unit to ReceiverPhone.
// Resolution is the wallet lookup the user saw for that phone.
type PendingPayment struct {
	UserID        string
	SenderPhone   string
	ReceiverPhone string
	Resolution    resolver.Result
	Amount        string
	Unit          string
	Signer        ledger.Signer
}

// Attempt tracks one PendingPayment through the state machine.
type Attempt struct {
	ID             string
	UserID         string
	SenderPhone    string
	ReceiverPhone  string
	ReceiverWallet string
	Amount         string
	Unit           string
	Wei            string
	State          State
	TxHash         string
	Err            error
	StartedAt      time.Time
}

// Event is one state transition. From equals To when the transaction hash
// becomes known while still sending.
type Event struct {
	Attempt Attempt
	From    State
	To      State
}

// Observer reacts to payment transitions. Observers run synchronously in
// registration order and must not block.
type Observer interface {
	Observe(ctx context.Context, event Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, event Event)

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, event Event) { f(ctx, event) }

// Service runs the payment state machine against the ledger.
type Service struct {
	handle    ledger.Handle
	observers []Observer
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a payment service.
func NewService(handle ledger.Handle, logger *slog.Logger, observers ...Observer) *Service {
	return &Service{
		handle:    handle,
		observers: observers,
		logger:    logging.Component(logger, "payments"),
		now:       time.Now,
	}
}

// Submit validates p, converts the amount and broadcasts the transfer. On
// success the returned attempt is in StateSending with TxHash set; call
// Confirm to wait for the ledger's verdict.
func (s *Service) Submit(ctx context.Context, p PendingPayment) (Attempt, error) {
	attempt := Attempt{
		ID:            uuid.New().String(),
		UserID:        p.UserID,
		SenderPhone:   p.SenderPhone,
		ReceiverPhone: phone.Digits(p.ReceiverPhone),
		Amount:        strings.TrimSpace(p.Amount),
		Unit:          strings.ToLower(strings.TrimSpace(p.Unit)),
		State:         StateIdle,
		StartedAt:     s.now().UTC(),
	}
	if attempt.Unit == "" {
		attempt.Unit = UnitEther
	}
	s.transition(ctx, &attempt, StateValidating, nil)

	if err := validate(p); err != nil {
		return s.fail(ctx, attempt, err)
	}
	attempt.ReceiverWallet = p.Resolution.Wallet.Hex()

	wei, err := ToBaseUnits(p.Amount, p.Unit)
	if err != nil {
		return s.fail(ctx, attempt, err)
	}
	value, _ := new(big.Int).SetString(wei, 10)
	if value.Sign() <= 0 {
		return s.fail(ctx, attempt, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount))
	}
	attempt.Wei = wei

	l, ok := s.handle.Get()
	if !ok {
		return s.fail(ctx, attempt, ledger.ErrNotLoaded)
	}
	phoneID, err := phone.Encode(attempt.ReceiverPhone)
	if err != nil {
		return s.fail(ctx, attempt, phone.ErrInvalidPhone)
	}

	s.transition(ctx, &attempt, StateSending, nil)
	txHash, err := l.SendToPhone(ctx, p.Signer, phoneID, value)
	if err != nil {
		return s.fail(ctx, attempt, err)
	}
	attempt.TxHash = txHash
	s.transition(ctx, &attempt, StateSending, nil)
	s.logger.Info("payment submitted", "record_id", attempt.ID, "user_id", attempt.UserID, "phone", attempt.ReceiverPhone, "tx_hash", txHash)
	return attempt, nil
}

// Confirm waits for the ledger to confirm or reject a submitted attempt.
func (s *Service) Confirm(ctx context.Context, attempt Attempt) (Attempt, error) {
	if attempt.State != StateSending || attempt.TxHash == "" {
		return attempt, fmt.Errorf("attempt %s is %s, not awaiting confirmation", attempt.ID, attempt.State)
	}
	l, ok := s.handle.Get()
	if !ok {
		return s.fail(ctx, attempt, ledger.ErrNotLoaded)
	}
	if err := l.WaitConfirmed(ctx, attempt.TxHash); err != nil {
		return s.fail(context.WithoutCancel(ctx), attempt, err)
	}
	s.transition(ctx, &attempt, StateSuccess, nil)
	s.logger.Info("payment confirmed", "record_id", attempt.ID, "tx_hash", attempt.TxHash)
	return attempt, nil
}

// Send runs Submit followed by Confirm.
func (s *Service) Send(ctx context.Context, p PendingPayment) (Attempt, error) {
	attempt, err := s.Submit(ctx, p)
	if err != nil {
		return attempt, err
	}
	return s.Confirm(ctx, attempt)
}

// validate applies the checks in their fixed order; the first failure wins.
func validate(p PendingPayment) error {
	digits, err := phone.Normalize(p.ReceiverPhone)
	if err != nil || len(digits) < phone.LookupDigits {
		return phone.ErrInvalidPhone
	}
	if !p.Resolution.HasResolution() || p.Resolution.Phone != digits {
		return ErrUnregisteredReceiver
	}
	if strings.TrimSpace(p.Amount) == "" {
		return ErrMissingAmount
	}
	if p.Signer == nil {
		return wallet.ErrNotConnected
	}
	return nil
}

func (s *Service) fail(ctx context.Context, attempt Attempt, err error) (Attempt, error) {
	s.transition(ctx, &attempt, StateError, err)
	s.logger.Warn("payment failed", "record_id", attempt.ID, "user_id", attempt.UserID, "phone", attempt.ReceiverPhone, "error", err)
	return attempt, err
}

func (s *Service) transition(ctx context.Context, attempt *Attempt, to State, err error) {
	from := attempt.State
	attempt.State = to
	if err != nil {
		attempt.Err = err
	}
	event := Event{Attempt: *attempt, From: from, To: to}
	for _, o := range s.observers {
		o.Observe(ctx, event)
	}
}
