package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every BANKSTER_ env var that Load() reads.
var allConfigKeys = []string{
	"BANKSTER_LISTEN_ADDR",
	"BANKSTER_DB_PATH",
	"BANKSTER_SECRET_KEY",
	"BANKSTER_REDIS_URL",
	"BANKSTER_GATEWAY_URL",
	"BANKSTER_GATEWAY_TIMEOUT",
	"BANKSTER_PRODUCT_ID",
	"BANKSTER_PRODUCT_VERSION",
	"BANKSTER_AUTH_VALIDITY_DAYS",
	"BANKSTER_WARNING_DAYS",
	"BANKSTER_SETUP_TTL",
	"BANKSTER_IMPORT_INTERVAL",
	"BANKSTER_WARNING_INTERVAL",
	"BANKSTER_POLICY_PATH",
	"BANKSTER_BASE_URL",
}

// isolateConfigEnv saves and unsets all BANKSTER_ env vars so tests don't
// inherit values from the host environment.
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "bankster.db", cfg.DBPath)
	assert.Nil(t, cfg.SecretKey)
	assert.False(t, cfg.HasRedis())
	assert.Equal(t, "http://127.0.0.1:8090", cfg.GatewayURL)
	assert.Equal(t, 2*time.Minute, cfg.GatewayTimeout)
	assert.Equal(t, "1.0", cfg.ProductVersion)
	assert.Equal(t, 90*24*time.Hour, cfg.AuthValidity)
	assert.Equal(t, 7*24*time.Hour, cfg.WarningThreshold)
	assert.Equal(t, 15*time.Minute, cfg.SetupTTL)
	assert.Equal(t, 6*time.Hour, cfg.ImportInterval)
	assert.Equal(t, 24*time.Hour, cfg.WarningInterval)
	assert.Empty(t, cfg.PolicyPath)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.BaseURL)
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("BANKSTER_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("BANKSTER_DB_PATH", "/data/bankster.db")
	t.Setenv("BANKSTER_REDIS_URL", "redis://redis:6379/0")
	t.Setenv("BANKSTER_GATEWAY_URL", "http://fints-gateway:8090")
	t.Setenv("BANKSTER_GATEWAY_TIMEOUT", "30s")
	t.Setenv("BANKSTER_PRODUCT_ID", "ABCDEF0123456789")
	t.Setenv("BANKSTER_AUTH_VALIDITY_DAYS", "180")
	t.Setenv("BANKSTER_WARNING_DAYS", "14")
	t.Setenv("BANKSTER_IMPORT_INTERVAL", "0")
	t.Setenv("BANKSTER_POLICY_PATH", "/etc/bankster/policy.toml")
	t.Setenv("BANKSTER_BASE_URL", "https://bank.example.com/")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/data/bankster.db", cfg.DBPath)
	assert.True(t, cfg.HasRedis())
	assert.Equal(t, "http://fints-gateway:8090", cfg.GatewayURL)
	assert.Equal(t, 30*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, "ABCDEF0123456789", cfg.ProductID)
	assert.Equal(t, time.Duration(0), cfg.ImportInterval, "zero disables the scheduled import")
	assert.Equal(t, "/etc/bankster/policy.toml", cfg.PolicyPath)
	assert.Equal(t, "https://bank.example.com", cfg.BaseURL)

	policy := cfg.ExpiryPolicy()
	assert.Equal(t, 180*24*time.Hour, policy.Validity)
	assert.Equal(t, 14*24*time.Hour, policy.WarningThreshold)
}

func TestLoad_SecretKey(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("BANKSTER_SECRET_KEY", "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Len(t, cfg.SecretKey, 32)
	assert.Equal(t, byte(0x01), cfg.SecretKey[0])
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"short secret key", "BANKSTER_SECRET_KEY", "deadbeef"},
		{"non-hex secret key", "BANKSTER_SECRET_KEY", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"},
		{"bad gateway timeout", "BANKSTER_GATEWAY_TIMEOUT", "soon"},
		{"zero setup ttl", "BANKSTER_SETUP_TTL", "0s"},
		{"negative import interval", "BANKSTER_IMPORT_INTERVAL", "-1h"},
		{"non-numeric validity", "BANKSTER_AUTH_VALIDITY_DAYS", "ninety"},
		{"zero validity", "BANKSTER_AUTH_VALIDITY_DAYS", "0"},
		{"warning beyond validity", "BANKSTER_WARNING_DAYS", "90"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv(tc.key, tc.val)

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}
