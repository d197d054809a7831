// Package registration binds a user's phone number to their connected wallet
// on the ledger.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/payphone/payphone/internal/identity"
	"github.com/payphone/payphone/internal/ledger"
	"github.com/payphone/payphone/internal/logging"
	"github.com/payphone/payphone/internal/notification"
	"github.com/payphone/payphone/internal/phone"
	"github.com/payphone/payphone/internal/wallet"
)

// ErrInProgress is returned when the user already has a registration underway.
var ErrInProgress = errors.New("registration already in progress")

// State is a step of the registration state machine.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSending    State = "sending"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// Status messages shown to the user.
const (
	MessageSending    = "Registering phone number..."
	MessageSuccess    = "Phone number registered successfully!"
	MessageInvalid    = "Invalid phone number."
	MessageNoWallet   = "Please connect your wallet first."
	MessageNoContract = "Contract not loaded."
	messageFailed     = "Registration failed: "
)

// Status is a user's sticky registration state. Terminal states stay until
// the next attempt.
type Status struct {
	State     State
	Message   string
	Phone     string
	Wallet    string
	TxHash    string
	Err       error
	UpdatedAt time.Time
}

// Profiles stores the registered phone and wallet on the user.
type Profiles interface {
	Update(ctx context.Context, id string, patch identity.Patch) (identity.User, error)
}

// Service runs registrations.
type Service struct {
	handle   ledger.Handle
	profiles Profiles
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	statuses map[string]Status
}

// NewService builds a registration service. profiles and notifier may be nil.
func NewService(handle ledger.Handle, profiles Profiles, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		handle:   handle,
		profiles: profiles,
		notifier: notifier,
		logger:   logging.Component(logger, "registration"),
		now:      time.Now,
		statuses: make(map[string]Status),
	}
}

// Status returns the user's current registration state.
func (s *Service) Status(userID string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[userID]
	if !ok {
		return Status{State: StateIdle}
	}
	return st
}

// Submit validates raw, then broadcasts register(phone) from signer. On
// success the status is StateSending with TxHash set.
func (s *Service) Submit(ctx context.Context, userID, raw string, signer ledger.Signer) (Status, error) {
	s.mu.Lock()
	if cur, ok := s.statuses[userID]; ok && (cur.State == StateValidating || cur.State == StateSending) {
		s.mu.Unlock()
		return cur, ErrInProgress
	}
	s.statuses[userID] = Status{State: StateValidating, UpdatedAt: s.now().UTC()}
	s.mu.Unlock()

	digits, err := phone.ValidateRegistration(raw)
	if err != nil {
		return s.fail(userID, Status{}, MessageInvalid, err)
	}
	if signer == nil {
		return s.fail(userID, Status{Phone: digits}, MessageNoWallet, wallet.ErrNotConnected)
	}
	l, ok := s.handle.Get()
	if !ok {
		return s.fail(userID, Status{Phone: digits}, MessageNoContract, ledger.ErrNotLoaded)
	}
	phoneID, err := phone.Encode(digits)
	if err != nil {
		return s.fail(userID, Status{Phone: digits}, MessageInvalid, phone.ErrInvalidPhone)
	}

	st := Status{Phone: digits, Wallet: signer.Address().Hex()}
	s.set(userID, st, StateSending, MessageSending)
	txHash, err := l.RegisterPhone(ctx, signer, phoneID)
	if err != nil {
		return s.fail(userID, st, messageFailed+err.Error(), err)
	}
	st.TxHash = txHash
	st = s.set(userID, st, StateSending, MessageSending)
	s.logger.Info("registration submitted", "user_id", userID, "phone", digits, "tx_hash", txHash)
	return st, nil
}

// Confirm waits for the submitted registration and records the binding on
// the user's profile.
func (s *Service) Confirm(ctx context.Context, userID string, st Status) (Status, error) {
	if st.State != StateSending || st.TxHash == "" {
		return st, fmt.Errorf("registration for %s is %s, not awaiting confirmation", userID, st.State)
	}
	l, ok := s.handle.Get()
	if !ok {
		return s.fail(userID, st, MessageNoContract, ledger.ErrNotLoaded)
	}
	if err := l.WaitConfirmed(ctx, st.TxHash); err != nil {
		return s.fail(userID, st, messageFailed+err.Error(), err)
	}

	detached := context.WithoutCancel(ctx)
	if s.profiles != nil {
		phoneNumber, address := st.Phone, st.Wallet
		if _, err := s.profiles.Update(detached, userID, identity.Patch{PhoneNumber: &phoneNumber, WalletAddress: &address}); err != nil {
			s.logger.Error("store registered phone", "user_id", userID, "error", err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Send(detached, notification.Message{
			Kind:   notification.KindPhoneRegistered,
			UserID: userID,
			Body:   MessageSuccess,
			TxHash: st.TxHash,
		}); err != nil {
			s.logger.Warn("notification failed", "user_id", userID, "kind", notification.KindPhoneRegistered, "error", err)
		}
	}
	st = s.set(userID, st, StateSuccess, MessageSuccess)
	s.logger.Info("registration confirmed", "user_id", userID, "phone", st.Phone, "tx_hash", st.TxHash)
	return st, nil
}

// Register runs Submit followed by Confirm.
func (s *Service) Register(ctx context.Context, userID, raw string, signer ledger.Signer) (Status, error) {
	st, err := s.Submit(ctx, userID, raw, signer)
	if err != nil {
		return st, err
	}
	return s.Confirm(ctx, userID, st)
}

func (s *Service) set(userID string, st Status, state State, message string) Status {
	st.State = state
	st.Message = message
	st.UpdatedAt = s.now().UTC()
	s.mu.Lock()
	s.statuses[userID] = st
	s.mu.Unlock()
	return st
}

func (s *Service) fail(userID string, st Status, message string, err error) (Status, error) {
	st.Err = err
	st = s.set(userID, st, StateError, message)
	s.logger.Warn("registration failed", "user_id", userID, "phone", st.Phone, "error", err)
	return st, err
}
