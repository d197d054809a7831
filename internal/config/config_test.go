package config

import (
	"testing"
	"time"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != defaultChainID {
		t.Fatalf("expected sepolia chain id, got %d", cfg.ChainID)
	}
	if cfg.ContractAddress != defaultContract {
		t.Fatalf("unexpected contract address %s", cfg.ContractAddress)
	}
	if cfg.JWTSecret == "" || cfg.RefreshSecret == "" {
		t.Fatalf("expected development secrets to be filled in")
	}
	if cfg.OptimisticDelay != defaultOptimisticDelay {
		t.Fatalf("unexpected optimistic delay %s", cfg.OptimisticDelay)
	}
}

func TestLoadRequiresDatabaseOutsideDev(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "s3cret")

	if _, err := Load(); err == nil {
		t.Fatalf("expected missing DATABASE_URL to fail")
	}
}

func TestLoadDurations(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("CONFIRM_TIMEOUT", "45s")
	t.Setenv("CHAIN_ID", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ShutdownPeriod != 3*time.Second {
		t.Fatalf("expected 3s shutdown, got %s", cfg.ShutdownPeriod)
	}
	if cfg.ConfirmTimeout != 45*time.Second {
		t.Fatalf("expected 45s confirm timeout, got %s", cfg.ConfirmTimeout)
	}
	if cfg.ChainID != 1 {
		t.Fatalf("expected chain id 1, got %d", cfg.ChainID)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("RECEIPT_POLL_INTERVAL", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected invalid RECEIPT_POLL_INTERVAL to fail")
	}
}
