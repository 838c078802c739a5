package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("JWT_EXPIRATION_HOURS", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("BILLING_TIMEZONE", "")

	cfg, err := LoadAppConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, int64(24), cfg.JWTExpirationHours)
	assert.Equal(t, "UTC", cfg.BillingLocation.String())
}

func TestLoadAppConfig_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("JWT_EXPIRATION_HOURS", "2")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BILLING_TIMEZONE", "Asia/Tashkent")

	cfg, err := LoadAppConfig()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, int64(2), cfg.JWTExpirationHours)
	assert.Equal(t, "Asia/Tashkent", cfg.BillingLocation.String())
}

func TestLoadAppConfig_Errors(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	_, err := LoadAppConfig()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("BILLING_TIMEZONE", "Mars/Olympus")
	_, err = LoadAppConfig()
	assert.Error(t, err)
}

func TestLoadDBConfig(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "wallet")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "wallets")

	cfg, err := LoadDBConfig()
	require.NoError(t, err)
	assert.Equal(t, "host=localhost port=5432 user=wallet password=pw dbname=wallets sslmode=disable", cfg.DSN)

	assert.Zero(t, cfg.MaxConns)

	t.Setenv("DB_SSLMODE", "require")
	t.Setenv("DB_MAX_CONNS", "8")
	cfg, err = LoadDBConfig()
	require.NoError(t, err)
	assert.Contains(t, cfg.DSN, "sslmode=require")
	assert.Equal(t, int32(8), cfg.MaxConns)

	t.Setenv("DB_MAX_CONNS", "many")
	_, err = LoadDBConfig()
	assert.Error(t, err)

	t.Setenv("DB_HOST", "")
	t.Setenv("DB_NAME", "")
	_, err = LoadDBConfig()
	assert.ErrorContains(t, err, "DB_HOST, DB_NAME")
}
