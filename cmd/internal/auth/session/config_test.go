package session

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("PROMODESK_RESET_URL", "")
	t.Setenv("PROMODESK_SWEEP_INTERVAL", "")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.ResetURL == "" {
		t.Fatalf("expected default reset url")
	}
	if cfg.SweepInterval != time.Hour {
		t.Fatalf("sweep interval: got %v", cfg.SweepInterval)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("PROMODESK_RESET_URL", "https://admin.example.com/reset-password")
	t.Setenv("PROMODESK_SWEEP_INTERVAL", "15m")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.ResetURL != "https://admin.example.com/reset-password" {
		t.Fatalf("reset url: got %q", cfg.ResetURL)
	}
	if cfg.SweepInterval != 15*time.Minute {
		t.Fatalf("sweep interval: got %v", cfg.SweepInterval)
	}
}

func TestLoadConfigFromEnv_BadInterval(t *testing.T) {
	t.Setenv("PROMODESK_SWEEP_INTERVAL", "often")

	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
