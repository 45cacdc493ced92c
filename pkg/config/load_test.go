package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gratitudeboard/pkg/config"
)

type sampleConfig struct {
	Name  string `env:"PKGCONFIG_TEST_NAME" env-default:"default-name"`
	Limit int    `env:"PKGCONFIG_TEST_LIMIT" env-default:"10"`
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults from tags", func(t *testing.T) {
		cfg, err := config.Load[sampleConfig](ctx, "test", "")
		require.NoError(t, err)
		assert.Equal(t, "default-name", cfg.Name)
		assert.Equal(t, 10, cfg.Limit)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("PKGCONFIG_TEST_LIMIT", "42")

		cfg, err := config.Load[sampleConfig](ctx, "test", "")
		require.NoError(t, err)
		assert.Equal(t, 42, cfg.Limit)
	})

	t.Run("missing env file falls back to environment", func(t *testing.T) {
		cfg, err := config.Load[sampleConfig](ctx, "test", filepath.Join(t.TempDir(), "absent.env"))
		require.NoError(t, err)
		assert.Equal(t, "default-name", cfg.Name)
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("PKGCONFIG_TEST_LIMIT", "many")

		cfg, err := config.Load[sampleConfig](ctx, "test", "")
		require.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("reads env file", func(t *testing.T) {
		t.Cleanup(func() { _ = os.Unsetenv("PKGCONFIG_TEST_NAME") })
		path := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(path, []byte("PKGCONFIG_TEST_NAME=from-file\n"), 0o600))

		cfg, err := config.Load[sampleConfig](ctx, "test", path)
		require.NoError(t, err)
		assert.Equal(t, "from-file", cfg.Name)
	})
}
