// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/bankster/internal/domain/model"
)

const day = 24 * time.Hour

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	// SecretKey is the 32-byte AES-256 key for PINs at rest; nil when unset.
	SecretKey []byte
	RedisURL  string

	GatewayURL     string
	GatewayTimeout time.Duration
	ProductID      string
	ProductVersion string

	AuthValidity     time.Duration
	WarningThreshold time.Duration
	SetupTTL         time.Duration

	ImportInterval  time.Duration
	WarningInterval time.Duration

	PolicyPath string
	BaseURL    string
}

// HasRedis reports whether a Redis server is configured. Without one the
// setup state lives in memory and events stay in-process.
func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

// ExpiryPolicy returns the configured validity window and warning threshold.
func (c *Config) ExpiryPolicy() model.ExpiryPolicy {
	return model.ExpiryPolicy{
		Validity:         c.AuthValidity,
		WarningThreshold: c.WarningThreshold,
	}
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional. Defaults: BANKSTER_LISTEN_ADDR (127.0.0.1:8080),
// BANKSTER_DB_PATH (bankster.db), BANKSTER_GATEWAY_URL (http://127.0.0.1:8090),
// BANKSTER_GATEWAY_TIMEOUT (2m), BANKSTER_PRODUCT_VERSION (1.0),
// BANKSTER_AUTH_VALIDITY_DAYS (90), BANKSTER_WARNING_DAYS (7), BANKSTER_SETUP_TTL (15m),
// BANKSTER_IMPORT_INTERVAL (6h, 0 disables), BANKSTER_WARNING_INTERVAL (24h, 0 disables),
// BANKSTER_BASE_URL (http:// plus the listen address).
// BANKSTER_SECRET_KEY must be 64 hex characters when set; accounts with a
// PIN cannot be stored without it.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:     envString("BANKSTER_LISTEN_ADDR", "127.0.0.1:8080"),
		DBPath:         envString("BANKSTER_DB_PATH", "bankster.db"),
		RedisURL:       strings.TrimSpace(os.Getenv("BANKSTER_REDIS_URL")),
		GatewayURL:     envString("BANKSTER_GATEWAY_URL", "http://127.0.0.1:8090"),
		ProductID:      strings.TrimSpace(os.Getenv("BANKSTER_PRODUCT_ID")),
		ProductVersion: envString("BANKSTER_PRODUCT_VERSION", "1.0"),
		PolicyPath:     strings.TrimSpace(os.Getenv("BANKSTER_POLICY_PATH")),
	}
	cfg.BaseURL = strings.TrimRight(envString("BANKSTER_BASE_URL", "http://"+cfg.ListenAddr), "/")

	if v, ok := os.LookupEnv("BANKSTER_SECRET_KEY"); ok && v != "" {
		key, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("BANKSTER_SECRET_KEY must be hex encoded: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("BANKSTER_SECRET_KEY must be 64 hex characters (32 bytes), got %d bytes", len(key))
		}
		cfg.SecretKey = key
	}

	var err error
	if cfg.GatewayTimeout, err = envDuration("BANKSTER_GATEWAY_TIMEOUT", 2*time.Minute, false); err != nil {
		return nil, err
	}
	if cfg.SetupTTL, err = envDuration("BANKSTER_SETUP_TTL", 15*time.Minute, false); err != nil {
		return nil, err
	}
	if cfg.ImportInterval, err = envDuration("BANKSTER_IMPORT_INTERVAL", 6*time.Hour, true); err != nil {
		return nil, err
	}
	if cfg.WarningInterval, err = envDuration("BANKSTER_WARNING_INTERVAL", day, true); err != nil {
		return nil, err
	}

	validityDays, err := envDays("BANKSTER_AUTH_VALIDITY_DAYS", 90)
	if err != nil {
		return nil, err
	}
	warningDays, err := envDays("BANKSTER_WARNING_DAYS", 7)
	if err != nil {
		return nil, err
	}
	if warningDays >= validityDays {
		return nil, fmt.Errorf("BANKSTER_WARNING_DAYS (%d) must be less than BANKSTER_AUTH_VALIDITY_DAYS (%d)", warningDays, validityDays)
	}
	cfg.AuthValidity = time.Duration(validityDays) * day
	cfg.WarningThreshold = time.Duration(warningDays) * day

	return cfg, nil
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// envDuration parses a Go duration. Zero is accepted only when allowZero is
// set; negative values never are.
func envDuration(key string, def time.Duration, allowZero bool) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	if d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

func envDays(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid number of days %q: %w", key, v, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}
