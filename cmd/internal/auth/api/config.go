package authapi

import (
	"time"

	"promodesk/cmd/internal/env"
)

// Config controls auth API behavior and cookie transport defaults.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// Refresh tokens travel in an HttpOnly, Secure, SameSite=Strict cookie
	// scoped to the auth path prefix; its max age matches the refresh TTL.
	RefreshCookieName string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	RefreshCookieAge  time.Duration
}

// LoadConfigFromEnv loads auth API config from environment variables with
// safe defaults.
func LoadConfigFromEnv() Config {
	return Config{
		TrustProxy:        env.Bool("PROMODESK_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:      env.Int64("PROMODESK_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
		RefreshCookieName: env.String("PROMODESK_AUTH_REFRESH_COOKIE", "promodesk_refresh_token"),
		CookiePath:        env.String("PROMODESK_AUTH_COOKIE_PATH", "/auth"),
		CookieDomain:      env.String("PROMODESK_AUTH_COOKIE_DOMAIN", ""),
		CookieSecure:      env.Bool("PROMODESK_AUTH_COOKIE_SECURE", true),
		RefreshCookieAge:  env.Duration("PROMODESK_AUTH_REFRESH_COOKIE_AGE", 7*24*time.Hour),
	}
}
