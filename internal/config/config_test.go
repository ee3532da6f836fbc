package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/vitalpages")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/vitalpages")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionExpiry)
	assert.Equal(t, 5*time.Minute, cfg.Auth.PendingTwoFactor)
	assert.Equal(t, 64, cfg.Plugins.QueueCapacity)
	assert.Equal(t, 3, cfg.Plugins.MaxAttempts)
	assert.Equal(t, 8, cfg.Webhooks.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Webhooks.Timeout)
	assert.Equal(t, 7, cfg.Backups.RetentionDays)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.Email.Enabled)
}

func TestLoad_EmailRequiresAPIKey(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/vitalpages")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("EMAIL_ENABLED", "true")
	t.Setenv("RESEND_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESEND_API_KEY")
}

func TestLoad_TrustedProxyCIDRs(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/vitalpages")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TRUSTED_PROXY_CIDRS", "10.0.0.0/8, 172.16.0.0/12")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "172.16.0.0/12"}, cfg.RateLimit.TrustedProxyCIDRs)
}
