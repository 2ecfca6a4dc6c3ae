package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MigrationsPath  string
}

type NotifyConfig struct {
	QueueSize int
	From      string
}

type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Notify   NotifyConfig
}

// New loads configuration from the environment, optionally seeded from a
// .env file at path. Database connection settings are required; everything
// else has defaults.
func New(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
		}
	}

	cfg := &Config{}

	cfg.App.Port = envOr("APP_PORT", "8080")
	cfg.App.ShutdownTimeout = envDurationOr("APP_SHUTDOWN_TIMEOUT", 5*time.Second)

	for _, req := range []struct {
		key string
		dst *string
	}{
		{"DB_HOST", &cfg.Postgres.Host},
		{"DB_PORT", &cfg.Postgres.Port},
		{"DB_USER", &cfg.Postgres.User},
		{"DB_PASSWORD", &cfg.Postgres.Password},
		{"DB_NAME", &cfg.Postgres.DBName},
	} {
		v := os.Getenv(req.key)
		if v == "" {
			return nil, fmt.Errorf("config: %s is required", req.key)
		}
		*req.dst = v
	}

	cfg.Postgres.SSLMode = envOr("DB_SSLMODE", "disable")
	cfg.Postgres.MaxConns = int32(envIntOr("DB_MAX_CONNS", 10))
	cfg.Postgres.MinConns = int32(envIntOr("DB_MIN_CONNS", 2))
	cfg.Postgres.MaxConnLifetime = envDurationOr("DB_MAX_CONN_LIFETIME", 30*time.Minute)
	cfg.Postgres.MigrationsPath = envOr("MIGRATIONS_PATH", "migrations")

	cfg.Notify.QueueSize = envIntOr("NOTIFY_QUEUE_SIZE", 64)
	cfg.Notify.From = envOr("NOTIFY_FROM", "noreply@webshop.local")

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
