package token

import (
	"os"
	"strings"
	"time"
)

// Config defines signing configuration for all token kinds.
//
// Each kind has a dedicated HMAC secret. Reusing one secret across kinds
// would let a well-formed token of one kind be replayed as another; the
// per-kind split removes that class of forgery entirely.
type Config struct {
	// Issuer is the value of the "iss" claim on every token.
	Issuer string

	// Audience is the value of the "aud" claim; verification rejects tokens
	// minted for unrelated audiences.
	Audience string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration

	// ClockSkew is tolerated during verification.
	ClockSkew time.Duration

	AccessSecret  []byte
	RefreshSecret []byte
	ResetSecret   []byte
}

// DefaultConfig returns the standard TTLs for each token kind.
// Secrets must always come from the environment.
func DefaultConfig() Config {
	return Config{
		Issuer:     "promodesk",
		Audience:   "promodesk-admin",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		ResetTTL:   1 * time.Hour,
		ClockSkew:  30 * time.Second,
	}
}

// LoadConfigFromEnv loads token configuration from environment variables.
//
// Required:
//   - PROMODESK_JWT_ACCESS_SECRET
//   - PROMODESK_JWT_REFRESH_SECRET
//   - PROMODESK_JWT_RESET_SECRET
//
// Optional (Go duration strings):
//   - PROMODESK_JWT_ISSUER
//   - PROMODESK_JWT_AUDIENCE
//   - PROMODESK_JWT_ACCESS_TTL
//   - PROMODESK_JWT_REFRESH_TTL
//   - PROMODESK_JWT_RESET_TTL
//   - PROMODESK_JWT_CLOCK_SKEW
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("PROMODESK_JWT_ISSUER")); v != "" {
		cfg.Issuer = v
	}
	if v := strings.TrimSpace(os.Getenv("PROMODESK_JWT_AUDIENCE")); v != "" {
		cfg.Audience = v
	}

	if v := os.Getenv("PROMODESK_JWT_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTTL = d
	}
	if v := os.Getenv("PROMODESK_JWT_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTTL = d
	}
	if v := os.Getenv("PROMODESK_JWT_RESET_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.ResetTTL = d
	}
	if v := os.Getenv("PROMODESK_JWT_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	cfg.AccessSecret = secretFromEnv("PROMODESK_JWT_ACCESS_SECRET")
	cfg.RefreshSecret = secretFromEnv("PROMODESK_JWT_REFRESH_SECRET")
	cfg.ResetSecret = secretFromEnv("PROMODESK_JWT_RESET_SECRET")

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if len(c.AccessSecret) < 32 || len(c.RefreshSecret) < 32 || len(c.ResetSecret) < 32 {
		return ErrConfig
	}
	if sameSecret(c.AccessSecret, c.RefreshSecret) ||
		sameSecret(c.AccessSecret, c.ResetSecret) ||
		sameSecret(c.RefreshSecret, c.ResetSecret) {
		return ErrConfig
	}
	if c.Issuer == "" || c.Audience == "" {
		return ErrConfig
	}
	return nil
}

func secretFromEnv(key string) []byte {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	return []byte(v)
}

func sameSecret(a, b []byte) bool {
	return string(a) == string(b)
}
