package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full runtime configuration, resolved from the environment.
type Config struct {
	DatabaseURL string
	ServerAddr  string

	JWTSecret string
	TokenTTL  time.Duration

	// LockTimeout bounds row-lock waits in borrow/return transactions.
	LockTimeout time.Duration

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Load reads configuration from the environment. DATABASE_URL and JWT_SECRET
// are required; everything else has a default.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ServerAddr:      envOr("SERVER_ADDR", ":8080"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		TokenTTL:        envDurationOr("JWT_TTL", time.Hour),
		LockTimeout:     envDurationOr("LOCK_TIMEOUT", 3*time.Second),
		MaxOpenConns:    envIntOr("DB_MAX_OPEN_CONNS", 20),
		MaxIdleConns:    envIntOr("DB_MAX_IDLE_CONNS", 10),
		ConnMaxLifetime: envDurationOr("DB_CONN_MAX_LIFETIME", time.Hour),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
