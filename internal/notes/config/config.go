// Package config содержит конфигурацию сервиса заметок.
package config

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	pkgconfig "gratitudeboard/pkg/config"
	"gratitudeboard/pkg/logger"
)

// Константы ошибок и сообщений для конфигурации.
const (
	ServiceName = "notes"

	LogConfigLoaded     = "notes configuration"
	ErrFailedLoadConfig = "failed to load notes configuration"

	// EnvFileVariable указывает необязательный .env файл с настройками.
	EnvFileVariable = "NOTES_ENV_FILE"
)

// Config представляет полную конфигурацию сервиса заметок.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Store    StoreConfig    `yaml:"store"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Logging  LoggingConfig  `yaml:"logging"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
	Notes    NotesConfig    `yaml:"notes"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Events   EventsConfig   `yaml:"events"`
}

// Load загружает конфигурацию из переменных окружения и, если задан, из .env файла.
func Load(ctx context.Context) (*Config, error) {
	log := logger.Log(ctx)

	cfg, err := pkgconfig.Load[Config](ctx, ServiceName, os.Getenv(EnvFileVariable))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrFailedLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		log.Error(ctx, ErrFailedLoadConfig, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrFailedLoadConfig, err)
	}

	log.Info(ctx, LogConfigLoaded,
		zap.String("http_address", cfg.HTTP.GetAddress()),
		zap.String("grpc_address", cfg.GRPC.GetAddress()),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("redis_address", cfg.Redis.GetAddress()),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.String("log_level", cfg.Logging.Level),
		zap.String("log_mode", cfg.Logging.Mode),
		zap.Duration("note_ttl", cfg.Notes.TTL),
		zap.Duration("store_operation_timeout", cfg.Store.OperationTimeout),
		zap.String("archive_timezone", cfg.Archive.Timezone),
		zap.Duration("archive_offset", cfg.Archive.Offset),
		zap.String("events_driver", cfg.Events.Driver),
		zap.Int("shutdown_timeout_seconds", cfg.Shutdown.Timeout))

	return cfg, nil
}

// Validate проверяет значения, которые нельзя выразить тегами.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverRedis, StoreDriverPostgres:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Events.Driver {
	case EventsDriverRedis, EventsDriverLog, EventsDriverNone:
	default:
		return fmt.Errorf("unknown events driver %q", c.Events.Driver)
	}
	if c.Notes.TTL <= 0 {
		return fmt.Errorf("note ttl must be positive, got %s", c.Notes.TTL)
	}
	return c.HTTP.validateCORSOrigins()
}
