package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "APP_ENV", "NODE_ENV", "GIN_MODE", "LOG_LEVEL",
		"MONGODB_URI", "MONGODB_DATABASE",
		"SESSION_SECRET", "SESSION_COOKIE_NAME", "SESSION_COOKIE_SECURE", "SESSION_MAX_AGE_MS", "SESSION_COLLECTION",
		"RATE_LIMIT_WINDOW_MS", "RATE_LIMIT_MAX", "RATE_LIMIT_REDIS_URL",
		"STATIC_DIR", "STATIC_MAX_AGE_MS", "BODY_LIMIT_BYTES", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsInDevelopment(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "debug", cfg.GinMode)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 100, cfg.RateLimitMax)
	assert.Equal(t, 14*24*time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, 31557600*time.Second, cfg.StaticMaxAge)
	assert.Equal(t, int64(102400), cfg.BodyLimit)
	assert.Equal(t, "sessions", cfg.SessionCollection)
	assert.Nil(t, cfg.AllowedOrigins())
}

func TestLoadFallsBackToKnownSecretOnlyInDevelopment(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionSecret, cfg.SessionSecret)
	assert.True(t, cfg.SessionSecretIsDefault())

	clearEnv(t)
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestLoadProductionWithSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("PORT", "3000")
	t.Setenv("RATE_LIMIT_MAX", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
	assert.False(t, cfg.SessionSecretIsDefault())
	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, "release", cfg.GinMode)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, 5, cfg.RateLimitMax)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins())
}

func TestAppEnvTakesPrecedenceOverNodeEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "development")
	t.Setenv("NODE_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDevelopment())
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := Config{
		Port:            "8080",
		SessionSecret:   "x",
		RateLimitWindow: time.Minute,
		RateLimitMax:    1,
		SessionMaxAge:   time.Hour,
		BodyLimit:       1,
	}
	require.NoError(t, base.Validate())

	cases := map[string]func(c *Config){
		"port":   func(c *Config) { c.Port = "http" },
		"window": func(c *Config) { c.RateLimitWindow = 0 },
		"max":    func(c *Config) { c.RateLimitMax = 0 },
		"maxage": func(c *Config) { c.SessionMaxAge = 0 },
		"body":   func(c *Config) { c.BodyLimit = 0 },
		"secret": func(c *Config) { c.SessionSecret = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
