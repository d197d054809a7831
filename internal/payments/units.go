package payments

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	UnitEther = "ether"
	UnitWei   = "wei"

	etherDecimals = 18
)

var (
	// ErrUnsupportedUnit is returned for units other than ether and wei.
	ErrUnsupportedUnit = errors.New("unsupported unit")
	// ErrInvalidAmount is returned for amounts that are not a non-negative
	// number or do not map to a whole number of wei.
	ErrInvalidAmount = errors.New("invalid amount")
)

// ToBaseUnits converts a decimal amount in unit into an integer string of
// wei. An empty amount converts to "0"; an empty unit means ether.
func ToBaseUnits(value, unit string) (string, error) {
	unit = strings.ToLower(strings.TrimSpace(unit))
	if unit == "" {
		unit = UnitEther
	}
	if unit != UnitEther && unit != UnitWei {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedUnit, unit)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "0", nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	if amount.IsNegative() {
		return "", fmt.Errorf("%w: %q is negative", ErrInvalidAmount, value)
	}
	if unit == UnitEther {
		amount = amount.Shift(etherDecimals)
	}
	if !amount.IsInteger() {
		return "", fmt.Errorf("%w: %q %s is not a whole number of wei", ErrInvalidAmount, value, unit)
	}
	return amount.BigInt().String(), nil
}
