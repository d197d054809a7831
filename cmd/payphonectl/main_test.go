package main

import (
	"bytes"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("ETH_RPC_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestResolveUnboundPhone(t *testing.T) {
	out, err := runCLI(t, "resolve", "9123456780")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.Contains(out, "9123456780: Not Registered") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestResolveRejectsInvalidPhone(t *testing.T) {
	if _, err := runCLI(t, "resolve", "12ab"); err == nil {
		t.Fatalf("expected invalid phone error")
	}
}

func TestRegisterThenSendWithInMemoryRegistry(t *testing.T) {
	// Each command opens a fresh in-memory registry, so a send after
	// register in a separate invocation sees no binding.
	const key = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	out, err := runCLI(t, "register", "+91 98765 43211", "--private-key", key)
	if err != nil {
		t.Fatalf("register: %v (%s)", err, out)
	}
	if !strings.Contains(out, "Phone number registered successfully!") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = runCLI(t, "send", "9123456780", "1", "--private-key", key)
	if err == nil {
		t.Fatalf("expected unregistered receiver error, got %q", out)
	}
}
