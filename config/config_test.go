package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "production")
	cfg := LoadConfig()

	assert.Equal(t, 3000, cfg.ServerPort)
	assert.Equal(t, 8*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "none", cfg.MQ.Backend)
	assert.Equal(t, int64(5<<20), cfg.HTTP.MaxUploadBytes)
	assert.False(t, cfg.IsDev())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("STORAGE_BACKEND", "MINIO")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Database.UseSSL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, "minio", cfg.Storage.Backend)
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("JWT_TTL", "soon")
	cfg := LoadConfig()
	assert.Equal(t, 8*time.Hour, cfg.Auth.TokenTTL)
}

func TestLocation(t *testing.T) {
	loc, err := Config{Timezone: "Local"}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = Config{Timezone: "UTC"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = Config{Timezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}
