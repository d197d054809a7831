// Package phone turns user-typed phone numbers into the digit-only identifiers
// used as keys on the ledger.
package phone

import (
	"errors"
	"math/big"
	"regexp"
	"strings"
)

const (
	// MinDigits and MaxDigits bound a normalised identifier, inclusive.
	MinDigits = 7
	MaxDigits = 15
	// LookupDigits is the identifier length that triggers an automatic wallet lookup.
	LookupDigits = 10
)

var (
	// ErrInvalidFormat is returned by Normalize for inputs with foreign
	// characters or a digit count outside [MinDigits, MaxDigits].
	ErrInvalidFormat = errors.New("invalid phone number format")
	// ErrInvalidPhone is returned when a number fails the registration pattern.
	ErrInvalidPhone = errors.New("invalid phone number")
)

var registrationPattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// Normalize strips '+' and spaces from raw and returns the digits. Any other
// character, or a digit count outside the allowed range, is ErrInvalidFormat.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' || r == ' ':
		default:
			return "", ErrInvalidFormat
		}
	}
	digits := b.String()
	if len(digits) < MinDigits || len(digits) > MaxDigits {
		return "", ErrInvalidFormat
	}
	return digits, nil
}

// Digits removes '+' and spaces without validating anything else. It mirrors
// what the keypad shows and drives the lookup trigger.
func Digits(raw string) string {
	return strings.NewReplacer("+", "", " ", "").Replace(raw)
}

// IsDigits reports whether s is non-empty and holds only ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidateRegistration checks raw against the registration pattern after
// trimming and removing interior spaces, and returns the digits without the
// leading '+'.
func ValidateRegistration(raw string) (string, error) {
	compact := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if !registrationPattern.MatchString(compact) {
		return "", ErrInvalidPhone
	}
	return strings.TrimPrefix(compact, "+"), nil
}

// Encode converts a digit-only identifier into the ledger's uint256 key.
func Encode(digits string) (*big.Int, error) {
	if digits == "" {
		return nil, ErrInvalidFormat
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return nil, ErrInvalidFormat
		}
	}
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, ErrInvalidFormat
	}
	return n, nil
}
