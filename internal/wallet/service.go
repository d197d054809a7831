package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/payphone/payphone/internal/ledger"
	"github.com/payphone/payphone/internal/logging"
)

var (
	// ErrNotConnected is returned when a flow needs a signer and the user has none.
	ErrNotConnected = errors.New("no wallet connected")
	// ErrMissingCredentials is returned when neither a keystore nor a key was supplied.
	ErrMissingCredentials = errors.New("keystore or private key required")
	// ErrRawKeyDisabled is returned for hex private keys outside development.
	ErrRawKeyDisabled = errors.New("raw private keys are only accepted in development")
	// ErrInvalidKey is returned when the key material cannot be decoded or unlocked.
	ErrInvalidKey = errors.New("invalid key material")
)

// AddressRecorder stores the wallet address a user connected.
type AddressRecorder interface {
	SetWalletAddress(ctx context.Context, userID, address string) error
}

// Service connects and disconnects user signers.
type Service struct {
	connections  *Connections
	recorder     AddressRecorder
	allowRawKeys bool
	logger       *slog.Logger
}

// NewService builds a wallet service. recorder may be nil.
func NewService(connections *Connections, recorder AddressRecorder, allowRawKeys bool, logger *slog.Logger) *Service {
	if connections == nil {
		connections = NewConnections()
	}
	return &Service{
		connections:  connections,
		recorder:     recorder,
		allowRawKeys: allowRawKeys,
		logger:       logging.Component(logger, "wallet"),
	}
}

// Connect unlocks the supplied key material and makes it the user's active signer.
func (s *Service) Connect(ctx context.Context, userID string, in ConnectInput) (Connection, error) {
	key, source, err := s.unlock(in)
	if err != nil {
		return Connection{}, err
	}
	signer := NewKeySigner(key)
	info := Connection{
		UserID:      userID,
		Address:     signer.Address().Hex(),
		Source:      source,
		ConnectedAt: time.Now().UTC(),
	}

	if s.recorder != nil {
		if err := s.recorder.SetWalletAddress(ctx, userID, info.Address); err != nil {
			return Connection{}, fmt.Errorf("record wallet address: %w", err)
		}
	}
	s.connections.Put(info, signer)
	s.logger.Info("wallet connected", "user_id", userID, "address", info.Address, "source", string(source))
	return info, nil
}

// Disconnect forgets the user's signer.
func (s *Service) Disconnect(_ context.Context, userID string) error {
	if !s.connections.Remove(userID) {
		return ErrNotConnected
	}
	s.logger.Info("wallet disconnected", "user_id", userID)
	return nil
}

// DeleteByUser forgets the signer of a deleted user. It is a no-op when none
// is connected.
func (s *Service) DeleteByUser(_ context.Context, userID string) error {
	if s.connections.Remove(userID) {
		s.logger.Info("wallet disconnected", "user_id", userID, "reason", "user deleted")
	}
	return nil
}

// Signer returns the user's connected signer.
func (s *Service) Signer(userID string) (ledger.Signer, bool) {
	return s.connections.Get(userID)
}

// Status describes the user's connection.
func (s *Service) Status(userID string) (Connection, error) {
	info, ok := s.connections.Info(userID)
	if !ok {
		return Connection{}, ErrNotConnected
	}
	return info, nil
}

func (s *Service) unlock(in ConnectInput) (*ecdsa.PrivateKey, Source, error) {
	switch {
	case strings.TrimSpace(in.Keystore) != "":
		key, err := keystore.DecryptKey([]byte(in.Keystore), in.Passphrase)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key.PrivateKey, SourceKeystore, nil
	case strings.TrimSpace(in.PrivateKey) != "":
		if !s.allowRawKeys {
			return nil, "", ErrRawKeyDisabled
		}
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(in.PrivateKey), "0x"))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key, SourcePrivateKey, nil
	default:
		return nil, "", ErrMissingCredentials
	}
}
