package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "PORT", "STORE", "JWT_TTL", "REDIS_ADDR", "RATE_LIMIT_MAX", "SEED_CATEGORIES"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	require.Equal(t, "development", cfg.Env)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, StoreSQLite, cfg.Store)
	require.Equal(t, 24*time.Hour, cfg.JWTTTL)
	require.Empty(t, cfg.RedisAddr)
	require.Equal(t, 60, cfg.RateLimitMax)
	require.Equal(t, []string{"Fashion", "Toys", "Electronics", "Home"}, cfg.Categories())
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORE", "MEMORY")
	t.Setenv("JWT_TTL", "15m")
	t.Setenv("RATE_LIMIT_MAX", "5")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg := Load()
	require.Equal(t, StoreMemory, cfg.Store)
	require.Equal(t, 15*time.Minute, cfg.JWTTTL)
	require.Equal(t, 5, cfg.RateLimitMax)
	require.True(t, cfg.CookieSecure)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins())
}

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("JWT_TTL", "forever")
	t.Setenv("RATE_LIMIT_MAX", "lots")
	t.Setenv("COOKIE_SECURE", "maybe")

	cfg := Load()
	require.Equal(t, 24*time.Hour, cfg.JWTTTL)
	require.Equal(t, 60, cfg.RateLimitMax)
	require.False(t, cfg.CookieSecure)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "unknown_store", mutate: func(c *Config) { c.Store = "postgres" }, wantErr: "STORE"},
		{name: "missing_sqlite_path", mutate: func(c *Config) { c.SQLitePath = "" }, wantErr: "SQLITE_PATH"},
		{name: "memory_needs_no_path", mutate: func(c *Config) { c.Store = StoreMemory; c.SQLitePath = "" }},
		{name: "zero_ttl", mutate: func(c *Config) { c.JWTTTL = 0 }, wantErr: "JWT_TTL"},
		{name: "production_dev_secret", mutate: func(c *Config) { c.Env = "production" }, wantErr: "JWT_SECRET"},
		{name: "production_real_secret", mutate: func(c *Config) { c.Env = "production"; c.JWTSecret = "s3cr3t" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Store: StoreSQLite, SQLitePath: "x.db", JWTSecret: devJWTSecret, JWTTTL: time.Hour, Env: "development"}
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}
