package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadConfig(t *testing.T) {
	t.Run("file values", func(t *testing.T) {
		// Arrange
		dir := t.TempDir()
		writeFile(t, dir, "config.yml", `
logger:
  level: debug
  format: json
pairing:
  strategy: MaxLoss
  from_year: 2023
  workers: 2
  cache_ttl: 1m
`)

		// Act
		cfg, err := LoadConfig(dir)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Logger.Level)
		assert.Equal(t, "MaxLoss", cfg.Pairing.Strategy)
		assert.Equal(t, 2023, cfg.Pairing.FromYear)
		assert.Equal(t, 2, cfg.Pairing.Workers)
		assert.Equal(t, time.Minute, cfg.Pairing.CacheTTL)
		assert.Equal(t, 1095, cfg.Pairing.ExemptAfterDays)
		assert.True(t, cfg.Pairing.IncludeTransfersInTotal)
		assert.Equal(t, "taxlots.db", cfg.Database.DSN)
	})

	t.Run("defaults without a file", func(t *testing.T) {
		cfg, err := LoadConfig(t.TempDir())

		require.NoError(t, err)
		assert.Equal(t, "FIFO", cfg.Pairing.Strategy)
		assert.Equal(t, "console", cfg.Logger.Format)
		assert.Equal(t, 15*time.Second, cfg.Renames.Timeout)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "config.yml", "pairing:\n  strategy: FIFO\n")
		t.Setenv("PAIRING_STRATEGY", "LIFO")

		cfg, err := LoadConfig(dir)

		require.NoError(t, err)
		assert.Equal(t, "LIFO", cfg.Pairing.Strategy)
	})

	t.Run("dotenv file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, ".env", "DATABASE_DSN=from-dotenv.db\n")
		t.Cleanup(func() { os.Unsetenv("DATABASE_DSN") })

		cfg, err := LoadConfig(dir)

		require.NoError(t, err)
		assert.Equal(t, "from-dotenv.db", cfg.Database.DSN)
	})

	t.Run("invalid values", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "config.yml", "pairing:\n  strategy: HIFO\n  workers: 0\n")

		_, err := LoadConfig(dir)

		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Logger:  Logger{Format: "xml"},
		Pairing: Pairing{Strategy: "HIFO", Workers: -1, ExemptAfterDays: 0},
		Renames: Renames{URL: "http://example.com"},
	}

	err := cfg.Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	for _, fragment := range []string{"pairing.strategy", "pairing.workers", "pairing.exempt_after_days", "logger.format", "renames.rate_limit"} {
		assert.Contains(t, err.Error(), fragment)
	}

	valid := Config{Logger: Logger{Format: "json"}, Pairing: Pairing{Strategy: "averagecost", Workers: 1, ExemptAfterDays: 1095}}
	assert.NoError(t, valid.Validate())
}
