package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "connectsphere:", cfg.Redis.Prefix)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, time.Minute, cfg.Scheduler.SweepInterval)
	assert.Equal(t, cfg.DB.DSN, cfg.DB.ReadOnlyDSN)
}

func TestLoadConfigFromYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("server:\n  address: 127.0.0.1:9000\nredis:\n  enabled: false\ndatabase:\n  dsn: primary\n  read_only_dsn: replica\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("CONNECTSPHERE_AUTH_JWT_SECRET", "from-env")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "replica", cfg.DB.ReadOnlyDSN)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoadConfigRequiresSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("CONNECTSPHERE_ENVIRONMENT", "production")

	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)

	t.Setenv("CONNECTSPHERE_AUTH_JWT_SECRET", "a-real-secret")
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "a-real-secret", cfg.Auth.JWTSecret)
}

func TestFormatIndex(t *testing.T) {
	assert.Equal(t, "connectsphere-events", FormatIndex(ElasticConfig{Prefix: "connectsphere"}, "events"))
}
