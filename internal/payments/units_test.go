package payments

import (
	"errors"
	"testing"
)

func TestToBaseUnits(t *testing.T) {
	cases := []struct {
		value, unit, want string
	}{
		{"1", "ether", "1000000000000000000"},
		{"0.5", "ether", "500000000000000000"},
		{"0.000000000000000001", "ether", "1"},
		{"5", "wei", "5"},
		{"", "ether", "0"},
		{"  2 ", "ETHER", "2000000000000000000"},
		{"3", "", "3000000000000000000"},
		{"123456789012345678901234567890", "wei", "123456789012345678901234567890"},
	}
	for _, tc := range cases {
		got, err := ToBaseUnits(tc.value, tc.unit)
		if err != nil {
			t.Fatalf("ToBaseUnits(%q, %q): %v", tc.value, tc.unit, err)
		}
		if got != tc.want {
			t.Fatalf("ToBaseUnits(%q, %q) = %s, want %s", tc.value, tc.unit, got, tc.want)
		}
	}
}

func TestToBaseUnitsErrors(t *testing.T) {
	cases := []struct {
		value, unit string
		want        error
	}{
		{"1", "gwei", ErrUnsupportedUnit},
		{"", "btc", ErrUnsupportedUnit},
		{"abc", "ether", ErrInvalidAmount},
		{"-1", "ether", ErrInvalidAmount},
		{"1.5", "wei", ErrInvalidAmount},
		{"0.0000000000000000001", "ether", ErrInvalidAmount},
	}
	for _, tc := range cases {
		if _, err := ToBaseUnits(tc.value, tc.unit); !errors.Is(err, tc.want) {
			t.Fatalf("ToBaseUnits(%q, %q): expected %v, got %v", tc.value, tc.unit, tc.want, err)
		}
	}
}
