package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// clearEnv blanks every variable Load reads so tests see only what they
// set themselves.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "HOST", "PORT",
		"ALLOWED_ORIGINS", "FRONTEND_URL", "FRONTEND_URL_2", "FRONTEND_URL_3",
		"MONGODB_URI", "MONGO_URI", "POSTGRES_URI", "REDIS_URI",
		"JWT_SECRET", "JWT_TTL_HOURS", "ENCRYPTION_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongodb://localhost:27017/roktolink", cfg.MongoURI)
	assert.Equal(t, "postgres://localhost:5432/roktolink?sslmode=disable", cfg.PostgresURI)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURI)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Empty(t, cfg.AllowedHost, "host check only applies in production")
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoadProductionHost(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("HOST", "https://api.roktolink.org:8443/base")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "api.roktolink.org", cfg.AllowedHost)

	// The apex and www origins are derived from the API host so CORS
	// preflight works even when ALLOWED_ORIGINS is not set.
	assert.Contains(t, cfg.AllowedOrigins, "https://roktolink.org")
	assert.Contains(t, cfg.AllowedOrigins, "https://www.roktolink.org")
}

func TestLoadExplicitOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg := Load()
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}

func TestLoadTokenTTL(t *testing.T) {
	t.Run("explicit hours", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JWT_TTL_HOURS", "24")
		assert.Equal(t, 24*time.Hour, Load().TokenTTL)
	})

	t.Run("garbage falls back to default", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JWT_TTL_HOURS", "soon")
		assert.Equal(t, 72*time.Hour, Load().TokenTTL)
	})

	t.Run("non-positive falls back to default", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JWT_TTL_HOURS", "-5")
		assert.Equal(t, 72*time.Hour, Load().TokenTTL)
	})
}

func TestIsProductionTrimsAndLowercases(t *testing.T) {
	assert.True(t, (&Config{Environment: "  PRODUCTION "}).IsProduction())
	assert.False(t, (&Config{Environment: "staging"}).IsProduction())
}
