package contacts

import "errors"

var (
	// ErrContactNotFound is returned when no contact matches.
	ErrContactNotFound = errors.New("contact not found")
	// ErrNotOwner is returned when a user touches another user's contact.
	ErrNotOwner = errors.New("contact belongs to another user")
	// ErrInvalidContact is returned when input fails validation.
	ErrInvalidContact = errors.New("invalid contact")
)

// Contact is an address book entry.
type Contact struct {
	ID            string
	UserID        string
	Name          string
	PhoneNumber   string
	WalletAddress string
}

// NewContact is the input to Service.Create.
type NewContact struct {
	Name          string
	PhoneNumber   string
	WalletAddress string
}
