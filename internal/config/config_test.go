package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "clinicDB", cfg.DatabaseName)
	assert.Equal(t, 8080, cfg.WebPort)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("WEB_PORT", "9090")
	t.Setenv("DATABASE_NAME", "clinicTest")
	t.Setenv("TOKEN_TTL", "30m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.WebPort)
	assert.Equal(t, "clinicTest", cfg.DatabaseName)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
}

func TestGetEnvAsIntIgnoresGarbage(t *testing.T) {
	t.Setenv("WEB_PORT", "not-a-number")
	assert.Equal(t, 8080, getEnvAsInt("WEB_PORT", 8080))
}

func TestGetEnvAsDurationIgnoresGarbage(t *testing.T) {
	t.Setenv("TOKEN_TTL", "soon")
	assert.Equal(t, time.Hour, getEnvAsDuration("TOKEN_TTL", time.Hour))
}
