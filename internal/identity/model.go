package identity

import (
	"errors"
	"time"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when the username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials is returned when username or password is wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidUser is returned when registration input fails validation.
	ErrInvalidUser = errors.New("invalid user")
)

// User is a PayPhone account.
type User struct {
	ID            string
	Username      string
	PasswordHash  []byte
	PhoneNumber   string
	WalletAddress string
	CreatedAt     time.Time
}

// Credentials request structure.
type Credentials struct {
	Username string
	Password string
}

// Patch is a partial profile update; nil fields are left unchanged.
type Patch struct {
	PhoneNumber   *string
	WalletAddress *string
}

func (p Patch) apply(u User) User {
	if p.PhoneNumber != nil {
		u.PhoneNumber = *p.PhoneNumber
	}
	if p.WalletAddress != nil {
		u.WalletAddress = *p.WalletAddress
	}
	return u
}
