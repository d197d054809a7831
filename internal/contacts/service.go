package contacts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/payphone/payphone/internal/logging"
	"github.com/payphone/payphone/internal/phone"
)

// Service manages a user's address book.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService builds a contacts service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logging.Component(logger, "contacts")}
}

// Create stores a contact for userID with a normalised phone number.
func (s *Service) Create(ctx context.Context, userID string, in NewContact) (Contact, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Contact{}, fmt.Errorf("%w: name is required", ErrInvalidContact)
	}
	normalized, err := phone.Normalize(in.PhoneNumber)
	if err != nil {
		return Contact{}, err
	}
	wallet := strings.TrimSpace(in.WalletAddress)
	if wallet != "" {
		if !common.IsHexAddress(wallet) {
			return Contact{}, fmt.Errorf("%w: wallet address %q", ErrInvalidContact, wallet)
		}
		wallet = common.HexToAddress(wallet).Hex()
	}

	contact := Contact{
		ID:            uuid.New().String(),
		UserID:        userID,
		Name:          name,
		PhoneNumber:   normalized,
		WalletAddress: wallet,
	}
	if err := s.repo.Create(ctx, contact); err != nil {
		return Contact{}, err
	}
	s.logger.Info("contact created", "user_id", userID, "contact_id", contact.ID)
	return contact, nil
}

// List returns the user's contacts.
func (s *Service) List(ctx context.Context, userID string) ([]Contact, error) {
	return s.repo.ListByUser(ctx, userID)
}

// FindByPhone looks up the user's contact for a raw phone number.
func (s *Service) FindByPhone(ctx context.Context, userID, raw string) (Contact, error) {
	normalized, err := phone.Normalize(raw)
	if err != nil {
		return Contact{}, err
	}
	return s.repo.FindByPhone(ctx, userID, normalized)
}

// Get returns a contact owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (Contact, error) {
	contact, err := s.repo.Get(ctx, id)
	if err != nil {
		return Contact{}, err
	}
	if contact.UserID != userID {
		return Contact{}, ErrNotOwner
	}
	return contact, nil
}

// Delete removes a contact owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// DeleteByUser removes every contact of userID.
func (s *Service) DeleteByUser(ctx context.Context, userID string) error {
	return s.repo.DeleteByUser(ctx, userID)
}
