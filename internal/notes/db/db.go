// Package db поднимает хранилище заметок, выбранное в конфигурации.
package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	pgstore "gratitudeboard/internal/notes/adapters/postgres"
	redisstore "gratitudeboard/internal/notes/adapters/redis"
	"gratitudeboard/internal/notes/config"
	"gratitudeboard/internal/notes/ports/repositories"
	"gratitudeboard/pkg/db/postgres"
	pkgredis "gratitudeboard/pkg/db/redis"
	"gratitudeboard/pkg/logger"
	"gratitudeboard/pkg/resilience"
)

// Константы для сообщений logger.
const (
	LogStoreInitializing = "initializing notes store"
	LogStoreInitialized  = "notes store initialized successfully"
	LogMigrationStarting = "starting database migrations for notes service"
	LogPurged            = "expired notes purged"
	LogPurgeFailed       = "failed to purge expired notes"
)

// Константы для сообщений об ошибках.
const (
	ErrDBMigrations = "failed to apply notes database migrations"
	ErrDBConnection = "failed to connect to notes database"
	ErrRedis        = "failed to connect to notes Redis"
	ErrGetPath      = "failed to get path"
	ErrUnknownStore = "unknown store driver"
)

const filePrefix = "file://"

// Purger удаляет заметки с истекшим сроком хранения.
// Redis удаляет их сам по EXPIREAT, поэтому Purger есть только у Postgres.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Store объединяет выбранное хранилище и открытые им соединения.
type Store struct {
	Notes  repositories.NoteRepository
	Purger Purger

	redis    *goredis.Client
	database *postgres.Database
}

// Open открывает хранилище по cfg.Store.Driver. Клиент Redis создается и тогда,
// когда события публикуются в Redis Stream.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	log := logger.Log(ctx).With(zap.String("driver", cfg.Store.Driver))
	log.Info(ctx, LogStoreInitializing)

	store := &Store{}
	retry := connectRetry(&cfg.Store)

	needRedis := cfg.Store.Driver == config.StoreDriverRedis || cfg.Events.Driver == config.EventsDriverRedis
	if needRedis {
		err := retry.Execute(ctx, func(ctx context.Context) error {
			client, err := pkgredis.NewClient(ctx, RedisOptions(&cfg.Redis))
			if err != nil {
				return err
			}
			store.redis = client
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrRedis, err)
		}
	}

	switch cfg.Store.Driver {
	case config.StoreDriverRedis:
		store.Notes = redisstore.NewNoteRepository(store.redis, cfg.Store.PageSize, cfg.Store.OperationTimeout)
	case config.StoreDriverPostgres:
		database, err := openPostgres(ctx, &cfg.Postgres, retry)
		if err != nil {
			store.Close(ctx)
			return nil, err
		}
		store.database = database
		repo := pgstore.NewNoteRepository(database.Pool(), cfg.Store.PageSize, cfg.Store.OperationTimeout)
		store.Notes = repo
		store.Purger = repo
	default:
		store.Close(ctx)
		return nil, fmt.Errorf("%s: %q", ErrUnknownStore, cfg.Store.Driver)
	}

	log.Info(ctx, LogStoreInitialized)
	return store, nil
}

// Redis возвращает клиент Redis или nil, если он не нужен.
func (s *Store) Redis() goredis.UniversalClient {
	if s.redis == nil {
		return nil
	}
	return s.redis
}

// Close закрывает все открытые соединения.
func (s *Store) Close(ctx context.Context) {
	if s.database != nil {
		s.database.Close(ctx)
	}
	if s.redis != nil {
		if err := pkgredis.Close(ctx, s.redis); err != nil {
			logger.Log(ctx).Warn(ctx, ErrRedis, zap.Error(err))
		}
	}
}

// RunPurge периодически удаляет просроченные заметки до отмены ctx.
// Без Purger сразу возвращает nil.
func (s *Store) RunPurge(ctx context.Context, interval time.Duration) error {
	if s.Purger == nil || interval <= 0 {
		return nil
	}
	log := logger.Log(ctx).With(zap.String("method", "Store.RunPurge"))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			purged, err := s.Purger.PurgeExpired(ctx, now.UTC())
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				log.Warn(ctx, LogPurgeFailed, zap.Error(err))
				continue
			}
			if purged > 0 {
				log.Info(ctx, LogPurged, zap.Int64("count", purged))
			}
		}
	}
}

// RedisOptions переводит конфигурацию сервиса в настройки клиента Redis.
func RedisOptions(cfg *config.RedisConfig) *pkgredis.Config {
	return &pkgredis.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdle:         cfg.MinIdle,
		ConnectTimeout:  cfg.ConnectTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		MaxConnLifetime: cfg.MaxConnLifetime,
	}
}

// connectRetry повторяет подключение при старте, пока зависимости поднимаются.
func connectRetry(cfg *config.StoreConfig) *resilience.Retry {
	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.MaxAttempts = max(cfg.ConnectAttempts, 1)
	if cfg.ConnectBackoff > 0 {
		retryCfg.InitialBackoff = cfg.ConnectBackoff
		retryCfg.MaxBackoff = 8 * cfg.ConnectBackoff
	}
	return resilience.NewRetry("notes-store-connect", retryCfg)
}

func openPostgres(ctx context.Context, cfg *config.PostgresConfig, retry *resilience.Retry) (*postgres.Database, error) {
	log := logger.Log(ctx)
	log.Info(ctx, LogStoreInitializing,
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.Int("min_conn", cfg.MinConn),
		zap.Int("max_conn", cfg.MaxConn))

	migrationsPath, err := MigrationsSource(cfg.MigrationsPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", ErrDBMigrations, ErrGetPath, err)
	}

	log.Info(ctx, LogMigrationStarting, zap.String("migrations_path", migrationsPath))
	err = retry.Execute(ctx, func(ctx context.Context) error {
		_, err := postgres.MigrateDSN(ctx, cfg.GetConnectionURL(), migrationsPath)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrDBMigrations, err)
	}

	var database *postgres.Database
	err = retry.Execute(ctx, func(ctx context.Context) error {
		opened, err := postgres.New(ctx, postgres.Options{
			DSN:     cfg.GetDSN(),
			MinConn: cfg.MinConn,
			MaxConn: cfg.MaxConn,
		})
		if err != nil {
			return err
		}
		database = opened
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrDBConnection, err)
	}
	return database, nil
}

// MigrationsSource приводит путь к миграциям к абсолютному URL file://.
func MigrationsSource(path string) (string, error) {
	dir := strings.TrimPrefix(path, filePrefix)
	if filepath.IsAbs(dir) {
		return filePrefix + dir, nil
	}
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return filePrefix + absPath, nil
}
