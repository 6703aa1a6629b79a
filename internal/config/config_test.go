package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/clinicq_test")
	defer os.Unsetenv("DATABASE_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("expected default env to be development")
	}
	if cfg.DefaultConsultMinutes != 15 {
		t.Errorf("expected default consult minutes 15, got %d", cfg.DefaultConsultMinutes)
	}
	if cfg.QueueLockTimeout() != 3*time.Second {
		t.Errorf("expected default lock timeout 3s, got %s", cfg.QueueLockTimeout())
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	os.Unsetenv("DATABASE_URL")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestValidate_ProductionRequiresSecret(t *testing.T) {
	cfg := &Config{Env: "production", DefaultConsultMinutes: 15}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing JWT_SECRET in production")
	}

	cfg.JWTSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_DevAllowsMissingSecret(t *testing.T) {
	cfg := &Config{Env: "development", DefaultConsultMinutes: 15}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestQueueLockTimeout_Explicit(t *testing.T) {
	cfg := &Config{QueueLockTimeoutMS: 250}
	if cfg.QueueLockTimeout() != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %s", cfg.QueueLockTimeout())
	}
}
