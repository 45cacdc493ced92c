// Package main запускает однократную архивацию заметок за день.
//
// Использование:
//
//	archiver [-date YYYY-MM-DD]
//
// Без -date архивируется текущий день в часовом поясе NOTES_ARCHIVE_TIMEZONE.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	_ "time/tzdata" // часовые пояса архивации без системной базы

	"go.uber.org/zap"

	"gratitudeboard/internal/notes/app"
	"gratitudeboard/internal/notes/config"
	"gratitudeboard/internal/notes/db"
	"gratitudeboard/pkg/logger"
)

// Константы для переменных окружения.
const (
	EnvLoggerMode  = "NOTES_LOGGER_MODE"
	EnvLoggerLevel = "NOTES_LOGGER_LEVEL"
)

// Константы для сообщений об ошибках.
const (
	ErrInitLogger = "failed to initialize logger"
	ErrLoadConfig = "failed to load configuration"
	ErrInitStore  = "failed to initialize notes store"
	ErrArchive    = "archive run failed"
	ErrEncode     = "failed to encode archive result"
)

func main() {
	date := flag.String("date", "", "day to archive, YYYY-MM-DD (default: today in archive time zone)")
	flag.Parse()

	env := logger.Development
	if strings.ToLower(os.Getenv(EnvLoggerMode)) == "production" {
		env = logger.Production
	}

	log, err := logger.NewLogger(env, os.Getenv(EnvLoggerLevel))
	if err != nil {
		panic(ErrInitLogger + ": " + err.Error())
	}
	logger.SetGlobalLogger(log)
	defer func() { _ = log.Sync() }()

	ctx := logger.NewRequestIDContext(context.Background(), "")

	if err := run(ctx, *date); err != nil {
		log.Error(ctx, ErrArchive, zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, date string) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrLoadConfig, err)
	}
	// Событий архиватор не публикует.
	cfg.Events.Driver = config.EventsDriverNone

	store, err := db.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrInitStore, err)
	}
	defer store.Close(ctx)

	result, err := app.NewArchiver(ctx, store.Notes, cfg.Archive.Timezone, nil).RunArchive(ctx, date)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(os.Stdout).Encode(result); err != nil {
		return fmt.Errorf("%s: %w", ErrEncode, err)
	}
	return nil
}
