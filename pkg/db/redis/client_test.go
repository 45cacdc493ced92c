package redis_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgredis "gratitudeboard/pkg/db/redis"
)

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	t.Run("connects to running server", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		defer mr.Close()

		port, err := strconv.Atoi(mr.Port())
		require.NoError(t, err)

		cfg := pkgredis.DefaultConfig()
		cfg.Host = mr.Host()
		cfg.Port = port

		client, err := pkgredis.NewClient(ctx, cfg)
		require.NoError(t, err)
		require.NoError(t, client.Set(ctx, "k", "v", 0).Err())
		assert.NoError(t, pkgredis.Close(ctx, client))
	})

	t.Run("fails when server is down", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		port, err := strconv.Atoi(mr.Port())
		require.NoError(t, err)
		mr.Close()

		cfg := pkgredis.DefaultConfig()
		cfg.Host = "127.0.0.1"
		cfg.Port = port
		cfg.ConnectTimeout = 200 * time.Millisecond

		client, err := pkgredis.NewClient(ctx, cfg)
		require.Error(t, err)
		assert.Nil(t, client)
		assert.Contains(t, err.Error(), pkgredis.ErrConnect)
	})
}

func TestConfigAddress(t *testing.T) {
	cfg := pkgredis.DefaultConfig()
	assert.Equal(t, "localhost:6379", cfg.Address())
}
