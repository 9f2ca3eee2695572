package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arvello/backend-console/internal/config"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/console",
		"REDIS_URL":    "redis://localhost:6379/0",
		"JWT_SECRET":   "test-secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "X-Tenant-ID", cfg.TenantHeader)
	require.Equal(t, "EUR", cfg.DefaultCurrency)
	require.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL)
	require.Equal(t, 30, cfg.WriteLimitMax)
}

func TestLoadRequiredVars(t *testing.T) {
	for _, missing := range []string{"DATABASE_URL", "REDIS_URL", "JWT_SECRET"} {
		env := baseEnv()
		env[missing] = ""
		_, err := config.LoadForTests(env)
		require.Error(t, err, "expected error when %s missing", missing)
	}
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PORT"] = "9090"
	env["CORS_ALLOWED_ORIGINS"] = "https://a.example, https://b.example"
	env["BUNDLE_CACHE_TTL"] = "30s"
	env["WRITE_RATE_LIMIT_MAX"] = "5"

	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 30*time.Second, cfg.BundleCacheTTL)
	require.Equal(t, 5, cfg.WriteLimitMax)
}
