package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // драйвер миграций
	_ "github.com/golang-migrate/migrate/v4/source/file"       // источник file://
	"go.uber.org/zap"

	"gratitudeboard/pkg/logger"
)

// Константы для сообщений об ошибках миграций.
const (
	ErrCreateMigrationInstance = "failed to create migration instance"
	ErrApplyMigrations         = "failed to apply migrations"
	ErrDirtySchema             = "database schema is dirty"
)

// MigrateDSN применяет миграции из migrationsPath и возвращает итоговую версию схемы.
func MigrateDSN(ctx context.Context, dsn string, migrationsPath string) (uint, error) {
	log := logger.Log(ctx).With(zap.String("path", migrationsPath))

	m, err := migrate.New(migrationsPath, dsn)
	if err != nil {
		log.Error(ctx, ErrCreateMigrationInstance, zap.Error(err))
		return 0, fmt.Errorf("%s: %w", ErrCreateMigrationInstance, err)
	}
	defer m.Close()

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info(ctx, LogMigrationsCurrent)
	case err != nil:
		log.Error(ctx, ErrApplyMigrations, zap.Error(err))
		return 0, fmt.Errorf("%s: %w", ErrApplyMigrations, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("%s: %w", ErrApplyMigrations, err)
	}
	if dirty {
		return version, fmt.Errorf("%s: version %d", ErrDirtySchema, version)
	}

	log.Info(ctx, LogMigrationsApplied, zap.Uint("version", version))
	return version, nil
}
