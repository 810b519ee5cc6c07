package app

import (
	"time"

	"promodesk/cmd/internal/env"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: env.String("PROMODESK_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: env.String("PROMODESK_LOG_LEVEL", "info"),

		ReadHeaderTimeout: env.Duration("PROMODESK_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       env.Duration("PROMODESK_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      env.Duration("PROMODESK_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       env.Duration("PROMODESK_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: env.Int("PROMODESK_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: env.String("PROMODESK_DATABASE_URL", ""),
		DBMaxConns:  env.Int32("PROMODESK_DB_MAX_CONNS", 10),
		DBMinConns:  env.Int32("PROMODESK_DB_MIN_CONNS", 0),
	}
}
