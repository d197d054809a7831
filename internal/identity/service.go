package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/payphone/payphone/internal/logging"
	"github.com/payphone/payphone/internal/phone"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 6
)

// Cascader removes state owned by a user: contacts and history rows, the
// connected signer and the compose session.
type Cascader interface {
	DeleteByUser(ctx context.Context, userID string) error
}

// NewUser is the input to Create.
type NewUser struct {
	Username    string
	Password    string
	PhoneNumber string
}

// Service manages identity lifecycle.
type Service struct {
	repo      Repository
	cascaders []Cascader
	logger    *slog.Logger
}

// NewService creates a new identity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logging.Component(logger, "identity")}
}

// Cascade registers stores whose rows are removed together with their user.
func (s *Service) Cascade(c ...Cascader) {
	s.cascaders = append(s.cascaders, c...)
}

// Create registers a user and stores a bcrypt hash of the password.
func (s *Service) Create(ctx context.Context, in NewUser) (User, error) {
	username := strings.TrimSpace(in.Username)
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return User{}, fmt.Errorf("%w: username must be %d-%d characters", ErrInvalidUser, minUsernameLen, maxUsernameLen)
	}
	if len(in.Password) < minPasswordLen {
		return User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidUser, minPasswordLen)
	}
	var phoneNumber string
	if strings.TrimSpace(in.PhoneNumber) != "" {
		normalized, err := phone.Normalize(in.PhoneNumber)
		if err != nil {
			return User{}, err
		}
		phoneNumber = normalized
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		PhoneNumber:  phoneNumber,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	s.logger.Info("user created", "user_id", user.ID)
	return user, nil
}

// Get returns the user with id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.Get(ctx, id)
}

// GetByUsername returns the user registered under username.
func (s *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	return s.repo.GetByUsername(ctx, strings.TrimSpace(username))
}

// Exists reports whether a user with id is stored.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Update applies a partial profile change. A non-empty phone number must be valid.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (User, error) {
	if patch.PhoneNumber != nil && *patch.PhoneNumber != "" {
		normalized, err := phone.Normalize(*patch.PhoneNumber)
		if err != nil {
			return User{}, err
		}
		patch.PhoneNumber = &normalized
	}
	return s.repo.Update(ctx, id, patch)
}

// SetWalletAddress records the wallet a user connected.
func (s *Service) SetWalletAddress(ctx context.Context, id, address string) error {
	_, err := s.repo.Update(ctx, id, Patch{WalletAddress: &address})
	return err
}

// Delete removes the user and everything registered cascaders hold for it.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	for _, c := range s.cascaders {
		if err := c.DeleteByUser(ctx, id); err != nil {
			return fmt.Errorf("cascade delete: %w", err)
		}
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// Authenticate verifies username and password.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(creds.Username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}
