// Package auth issues and verifies the JWT access and refresh tokens that
// protect the API.
package auth

import (
	"context"
	"time"

	"github.com/payphone/payphone/internal/config"
	"github.com/payphone/payphone/internal/identity"
)

// Users authenticates and loads accounts.
type Users interface {
	Authenticate(ctx context.Context, creds identity.Credentials) (identity.User, error)
	Get(ctx context.Context, id string) (identity.User, error)
}

// TokenPair is returned by Login and Refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Service issues token pairs.
type Service struct {
	users         Users
	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewService builds an auth service from configuration.
func NewService(cfg config.Config, users Users) *Service {
	return &Service{
		users:         users,
		issuer:        cfg.AppName,
		accessSecret:  []byte(cfg.JWTSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		now:           time.Now,
	}
}

// Login validates credentials and issues tokens.
func (s *Service) Login(ctx context.Context, creds identity.Credentials) (identity.User, TokenPair, error) {
	user, err := s.users.Authenticate(ctx, creds)
	if err != nil {
		return identity.User{}, TokenPair{}, err
	}
	pair, err := s.issue(user)
	if err != nil {
		return identity.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh verifies a refresh token for a still existing user and issues a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := parse(refreshToken, tokenTypeRefresh, s.refreshSecret)
	if err != nil {
		return TokenPair{}, err
	}
	user, err := s.users.Get(ctx, claims.Subject)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	return s.issue(user)
}

// Verify checks an access token and returns its claims.
func (s *Service) Verify(accessToken string) (Claims, error) {
	return parse(accessToken, tokenTypeAccess, s.accessSecret)
}

func (s *Service) issue(user identity.User) (TokenPair, error) {
	now := s.now()
	access, _, err := sign(user.ID, user.Username, tokenTypeAccess, s.issuer, s.accessSecret, s.accessTTL, now)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := sign(user.ID, user.Username, tokenTypeRefresh, s.issuer, s.refreshSecret, s.refreshTTL, now)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(s.accessTTL.Seconds())}, nil
}
