package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/automarket")
	t.Setenv("GEMINI_API_KEY", "test-key")
}

func TestFromEnvDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.Equal(t, 4, cfg.FanOutLimit)
	assert.Equal(t, 5*time.Minute, cfg.StageTimeout)
	assert.Equal(t, 2*time.Minute, cfg.ItemTimeout)
	assert.Equal(t, 45*time.Second, cfg.RenderTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("PUBLIC_BASE_URL", "https://marketing.example.com")
	t.Setenv("FAN_OUT_LIMIT", "8")
	t.Setenv("STAGE_TIMEOUT", "10m")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://marketing.example.com", cfg.PublicBaseURL)
	assert.Equal(t, 8, cfg.FanOutLimit)
	assert.Equal(t, 10*time.Minute, cfg.StageTimeout)
}

func TestFromEnvMissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GEMINI_API_KEY", "test-key")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/automarket")
	t.Setenv("GEMINI_API_KEY", "")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "GEMINI_API_KEY")
}

func TestFromEnvInvalidValues(t *testing.T) {
	setRequiredEnv(t)

	t.Setenv("FAN_OUT_LIMIT", "not-a-number")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "FAN_OUT_LIMIT")

	t.Setenv("FAN_OUT_LIMIT", "0")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "at least 1")

	t.Setenv("FAN_OUT_LIMIT", "4")
	t.Setenv("ITEM_TIMEOUT", "soon")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "ITEM_TIMEOUT")
}

func TestNewJWTConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_EXPIRATION_HOURS", "")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Secret)
	assert.Equal(t, 24, cfg.ExpirationHours)
}

func TestNewJWTConfigErrors(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := NewJWTConfig()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_EXPIRATION_HOURS", "0")
	_, err = NewJWTConfig()
	assert.Error(t, err)
}

func TestAdminConfigVerify(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD_HASH", hash)

	cfg, err := NewAdminConfig()
	require.NoError(t, err)
	assert.Equal(t, "admin", cfg.Username)

	assert.True(t, cfg.Verify("admin", "hunter2"))
	assert.False(t, cfg.Verify("admin", "wrong"))
	assert.False(t, cfg.Verify("root", "hunter2"))
}

func TestNewAdminConfigRejectsBadHash(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD_HASH", "plaintext")
	_, err := NewAdminConfig()
	assert.ErrorContains(t, err, "bcrypt")
}

func TestHashPasswordEmpty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}
