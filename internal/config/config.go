package config

import (
	"os"
	"strconv"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate.
type Config struct {
	AdminUser     string
	AdminPassword string

	DatabaseURL string

	// RetentionDays is the default number of days events are kept before
	// the retention worker deletes them. Per-site settings override it.
	RetentionDays int

	ListenAddr string

	// BootstrapAPIKey, when set, is registered (hashed) for the bootstrap
	// admin on startup so automation can query the BI API without a
	// manual key-issuing step.
	BootstrapAPIKey string
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		AdminUser:       getenv("APP_ADMIN_USER", "admin"),
		AdminPassword:   getenv("APP_ADMIN_PASSWORD", "changeme"),
		DatabaseURL:     os.Getenv("APP_DATABASE_URL"),
		ListenAddr:      getenv("APP_LISTEN_ADDR", ":8080"),
		RetentionDays:   90,
		BootstrapAPIKey: getenv("APP_BOOTSTRAP_API_KEY", ""),
	}

	if v := os.Getenv("APP_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.RetentionDays = days
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
