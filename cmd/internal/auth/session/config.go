package session

import (
	"os"
	"strings"
	"time"
)

// Config holds session-subsystem settings that are not token-signing concerns
// (those live in cmd/security/token).
type Config struct {
	// ResetURL is the dashboard page a password-reset email links to; the
	// signed reset token is appended as a query parameter.
	ResetURL string

	// SweepInterval is the cadence of the expired-record sweep.
	SweepInterval time.Duration
}

// DefaultConfig returns development defaults.
func DefaultConfig() Config {
	return Config{
		ResetURL:      "http://localhost:3000/reset-password",
		SweepInterval: time.Hour,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional:
//   - PROMODESK_RESET_URL
//   - PROMODESK_SWEEP_INTERVAL (Go duration string)
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("PROMODESK_RESET_URL")); v != "" {
		cfg.ResetURL = v
	}

	if v := os.Getenv("PROMODESK_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.SweepInterval = d
	}

	return cfg, nil
}
