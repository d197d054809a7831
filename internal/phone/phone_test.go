package phone

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
		err  error
	}{
		{in: "9876543210", want: "9876543210"},
		{in: "+91 98765 43210", want: "919876543210"},
		{in: "1234567", want: "1234567"},
		{in: "+" + strings.Repeat("9", 15), want: strings.Repeat("9", 15)},
		{in: "123456", err: ErrInvalidFormat},
		{in: strings.Repeat("1", 16), err: ErrInvalidFormat},
		{in: "987-654-3210", err: ErrInvalidFormat},
		{in: "(987) 6543210", err: ErrInvalidFormat},
		{in: "", err: ErrInvalidFormat},
	}

	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("Normalize(%q): expected %v, got %v", tc.in, tc.err, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Normalize(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDigits(t *testing.T) {
	if got := Digits("+1 415 555"); got != "1415555" {
		t.Fatalf("unexpected digits %q", got)
	}
}

func TestValidateRegistration(t *testing.T) {
	got, err := ValidateRegistration(" +91 98765 43211 ")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != "919876543211" {
		t.Fatalf("expected stripped identifier, got %q", got)
	}

	for _, bad := range []string{"12345", "++9198765", "91-98765-43211", "+"} {
		if _, err := ValidateRegistration(bad); !errors.Is(err, ErrInvalidPhone) {
			t.Fatalf("ValidateRegistration(%q): expected ErrInvalidPhone, got %v", bad, err)
		}
	}
}

func TestEncode(t *testing.T) {
	n, err := Encode("919876543211")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if n.String() != "919876543211" {
		t.Fatalf("unexpected encoding %s", n)
	}
	if _, err := Encode("12a"); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected invalid format for non digits, got %v", err)
	}
}

func TestIsDigits(t *testing.T) {
	cases := map[string]bool{"9876543210": true, "": false, "98765-4321": false, "98765abcde": false, "+9876543210": false}
	for in, want := range cases {
		if got := IsDigits(in); got != want {
			t.Fatalf("IsDigits(%q) = %v, want %v", in, got, want)
		}
	}
}
