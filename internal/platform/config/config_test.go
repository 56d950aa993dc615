package config

import (
	"testing"
	"time"

	"rodo_assess/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SECURITY_JWT_TOKEN_SECRET_KEY", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://localhost/rodo")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []byte("s3cret"), cfg.Security.SecretKey)
	assert.Equal(t, 10*time.Hour, cfg.Security.TokenTTL)
	assert.Equal(t, DefaultPublicPaths, cfg.Security.PublicPaths)
	assert.True(t, cfg.Security.QueryTokenFallback)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "postgres://localhost/rodo", cfg.Database.URL)
	assert.True(t, cfg.Database.Migrate)
	assert.Equal(t, time.Hour, cfg.Billing.SweepInterval)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SECURITY_JWT_TOKEN_SECRET_KEY", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://localhost/rodo")
	t.Setenv("SECURITY_JWT_TOKEN_TTL", "30m")
	t.Setenv("SECURITY_PUBLIC_PATHS", "/login, /health")
	t.Setenv("SECURITY_QUERY_TOKEN_FALLBACK", "false")
	t.Setenv("SERVER_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Security.TokenTTL)
	assert.Equal(t, []string{"/login", "/health"}, cfg.Security.PublicPaths)
	assert.False(t, cfg.Security.QueryTokenFallback)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("SECURITY_JWT_TOKEN_SECRET_KEY", "  ")
	t.Setenv("DATABASE_URL", "postgres://localhost/rodo")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"/a", "/b"}, splitList("/a,,/b "))
	assert.Equal(t, []string{"/a"}, splitList([]interface{}{"/a", ""}))
	assert.Empty(t, splitList(nil))
}
