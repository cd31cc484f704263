package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("SessionTTL converts minutes to duration", func(t *testing.T) {
		cfg := &Config{SessionTTLMinutes: 30}
		assert.Equal(t, 30*time.Minute, cfg.SessionTTL())
	})
}

func TestValidate(t *testing.T) {
	t.Run("accepts sane values", func(t *testing.T) {
		cfg := &Config{SessionTTLMinutes: 30, GracePeriodDays: 1}
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("rejects non-positive session TTL", func(t *testing.T) {
		cfg := &Config{SessionTTLMinutes: 0, GracePeriodDays: 1}
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects negative grace period", func(t *testing.T) {
		cfg := &Config{SessionTTLMinutes: 30, GracePeriodDays: -1}
		assert.Error(t, cfg.Validate(false))
	})
}

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"PORT":                     os.Getenv("PORT"),
		"DATABASE_URL":             os.Getenv("DATABASE_URL"),
		"REDIS_URL":                os.Getenv("REDIS_URL"),
		"WEBHOOK_SIGNATURE_SECRET": os.Getenv("WEBHOOK_SIGNATURE_SECRET"),
		"SESSION_TTL_MINUTES":      os.Getenv("SESSION_TTL_MINUTES"),
		"GRACE_PERIOD_DAYS":        os.Getenv("GRACE_PERIOD_DAYS"),
		"TIMEZONE":                 os.Getenv("TIMEZONE"),
		"LOG_LEVEL":                os.Getenv("LOG_LEVEL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("PORT")
		os.Unsetenv("SESSION_TTL_MINUTES")
		os.Unsetenv("GRACE_PERIOD_DAYS")
		os.Unsetenv("TIMEZONE")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, 30, cfg.SessionTTLMinutes)
		assert.Equal(t, 1, cfg.GracePeriodDays)
		assert.Equal(t, "Europe/Helsinki", cfg.Timezone)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("PORT", "3000")
		os.Setenv("SESSION_TTL_MINUTES", "60")
		os.Setenv("TIMEZONE", "UTC")
		os.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, 60, cfg.SessionTTLMinutes)
		assert.Equal(t, "UTC", cfg.Timezone)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("fails without required DATABASE_URL", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Setenv("REDIS_URL", "redis://localhost:6379")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("fails without required REDIS_URL", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Unsetenv("REDIS_URL")

		_, err := Load()
		assert.Error(t, err)
	})
}
