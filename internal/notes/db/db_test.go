package db_test

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gratitudeboard/internal/notes/adapters/events"
	"gratitudeboard/internal/notes/config"
	"gratitudeboard/internal/notes/db"
	"gratitudeboard/internal/notes/domain/entities"
)

func redisConfig(t *testing.T, mr *miniredis.Miniredis) config.RedisConfig {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	return config.RedisConfig{Host: mr.Host(), Port: port, PoolSize: 2, ConnectTimeout: time.Second}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("redis store", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := &config.Config{
			Store:  config.StoreConfig{Driver: config.StoreDriverRedis, PageSize: 10, OperationTimeout: time.Second},
			Redis:  redisConfig(t, mr),
			Events: config.EventsConfig{Driver: config.EventsDriverLog},
		}

		store, err := db.Open(ctx, cfg)
		require.NoError(t, err)
		defer store.Close(ctx)

		assert.Nil(t, store.Purger)
		assert.NotNil(t, store.Redis())
		require.NoError(t, store.Notes.Ping(ctx))

		now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
		mr.SetTime(now)
		note := entities.NewNote("n1", "tok", "Ann", "ann@x.com", []string{"sun"}, now, time.Hour)
		require.NoError(t, store.Notes.Create(ctx, note))
		assert.True(t, mr.Exists("note:n1"))
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := &config.Config{
			Store:  config.StoreConfig{Driver: "dynamo"},
			Events: config.EventsConfig{Driver: config.EventsDriverNone},
		}

		store, err := db.Open(ctx, cfg)
		require.Error(t, err)
		assert.Nil(t, store)
		assert.Contains(t, err.Error(), db.ErrUnknownStore)
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		rc := redisConfig(t, mr)
		mr.Close()

		cfg := &config.Config{
			Store:  config.StoreConfig{Driver: config.StoreDriverRedis},
			Redis:  rc,
			Events: config.EventsConfig{Driver: config.EventsDriverNone},
		}

		_, err = db.Open(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), db.ErrRedis)
	})

	t.Run("postgres migrations fail without database", func(t *testing.T) {
		cfg := &config.Config{
			Store: config.StoreConfig{Driver: config.StoreDriverPostgres},
			Postgres: config.PostgresConfig{
				Host: "127.0.0.1", Port: 1, User: "u", Password: "p", Database: "d",
				MigrationsPath: "file://../../../migrations/notes",
			},
			Events: config.EventsConfig{Driver: config.EventsDriverNone},
		}

		_, err := db.Open(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), db.ErrDBMigrations)
	})
}

func TestStoreWithoutRedis(t *testing.T) {
	store := &db.Store{}

	assert.True(t, store.Redis() == nil, "interface must be nil, not a typed nil pointer")

	publisher, err := events.New(&config.EventsConfig{Driver: config.EventsDriverRedis}, store.Redis())
	require.ErrorIs(t, err, events.ErrNoRedisClient)
	assert.Nil(t, publisher)
}

func TestMigrationsSource(t *testing.T) {
	abs, err := filepath.Abs("migrations/notes")
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "relative with scheme", input: "file://migrations/notes", expected: "file://" + abs},
		{name: "relative plain", input: "migrations/notes", expected: "file://" + abs},
		{name: "absolute", input: "/srv/migrations", expected: "file:///srv/migrations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.MigrationsSource(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

type fakePurger struct {
	calls chan time.Time
}

func (f *fakePurger) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	f.calls <- now
	return 1, nil
}

func TestRunPurge(t *testing.T) {
	t.Run("no purger returns immediately", func(t *testing.T) {
		store := &db.Store{}
		assert.NoError(t, store.RunPurge(context.Background(), time.Millisecond))
	})

	t.Run("purges until cancelled", func(t *testing.T) {
		purger := &fakePurger{calls: make(chan time.Time, 8)}
		store := &db.Store{Purger: purger}
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() { done <- store.RunPurge(ctx, 5*time.Millisecond) }()

		select {
		case <-purger.calls:
		case <-time.After(2 * time.Second):
			t.Fatal("purge was not called")
		}
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})
}
