// Package main реализует точку входа службы заметок благодарности.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // часовые пояса архивации без системной базы

	"go.uber.org/zap"

	"gratitudeboard/internal/notes/adapters/events"
	"gratitudeboard/internal/notes/adapters/grpc"
	notehttp "gratitudeboard/internal/notes/adapters/http"
	"gratitudeboard/internal/notes/app"
	"gratitudeboard/internal/notes/config"
	"gratitudeboard/internal/notes/db"
	"gratitudeboard/pkg/logger"
	"gratitudeboard/pkg/shutdown"
)

// Константы для переменных окружения.
const (
	EnvLoggerMode  = "NOTES_LOGGER_MODE"
	EnvLoggerLevel = "NOTES_LOGGER_LEVEL"
)

// Константы для сообщений об ошибках.
const (
	ErrInitLogger           = "failed to initialize logger"
	ErrSyncLogger           = "failed to sync logger"
	ErrLoadConfig           = "failed to load configuration"
	ErrInitLoggerWithConfig = "failed to initialize logger with configuration settings"
	ErrInitStore            = "failed to initialize notes store"
	ErrInitEvents           = "failed to initialize event publisher"
	ErrStartGRPC            = "failed to start gRPC server"
	ErrStartHTTP            = "failed to start HTTP server"
	ErrBackground           = "background task stopped"
)

// Константы для игнорируемых ошибок.
const (
	ErrSyncStderr = "sync /dev/stderr: invalid argument"
	ErrSyncStdout = "sync /dev/stdout: invalid argument"
)

// Константы для сообщений сервиса.
const (
	LogServiceStarted      = "gratitude notes service started"
	LogServiceShutdownDone = "gratitude notes service shutdown complete"
	LogClosingStore        = "closing notes store"
	LogInitStore           = "initializing notes store"
	LogInitEvents          = "initializing event publisher"
	LogInitUseCases        = "initializing use cases"
	LogInitGRPCServer      = "initializing gRPC health server"
	LogInitHTTPServer      = "initializing HTTP server"
	LogArchiveDisabled     = "nightly archive disabled"
)

func main() {
	env := logger.Development
	if strings.ToLower(os.Getenv(EnvLoggerMode)) == "production" {
		env = logger.Production
	}

	log, err := logger.NewLogger(env, os.Getenv(EnvLoggerLevel))
	if err != nil {
		panic(ErrInitLogger + ": " + err.Error())
	}

	logger.SetGlobalLogger(log)

	ctx := logger.NewRequestIDContext(context.Background(), "")

	var exitCode int

	func() {
		defer func() {
			if err := log.Sync(); err != nil {
				errMsg := err.Error()
				if strings.Contains(errMsg, ErrSyncStderr) || strings.Contains(errMsg, ErrSyncStdout) {
					return
				}
				if _, writeErr := fmt.Fprintf(os.Stderr, "%s: %v\n", ErrSyncLogger, err); writeErr != nil {
					panic(writeErr)
				}
			}
		}()

		cfg, err := config.Load(ctx)
		if err != nil {
			log.Error(ctx, ErrLoadConfig, zap.Error(err))
			exitCode = 1
			return
		}

		finalLogger, err := logger.NewLogger(cfg.Logging.GetEnvironment(), cfg.Logging.Level)
		if err != nil {
			log.Error(ctx, ErrInitLoggerWithConfig, zap.Error(err))
			exitCode = 1
			return
		}
		logger.SetGlobalLogger(finalLogger)
		log = finalLogger

		log.Info(ctx, LogInitStore)
		store, err := db.Open(ctx, cfg)
		if err != nil {
			log.Error(ctx, ErrInitStore, zap.Error(err))
			exitCode = 1
			return
		}

		log.Info(ctx, LogInitEvents, zap.String("driver", cfg.Events.Driver))
		publisher, err := events.New(&cfg.Events, store.Redis())
		if err != nil {
			log.Error(ctx, ErrInitEvents, zap.Error(err))
			store.Close(ctx)
			exitCode = 1
			return
		}

		log.Info(ctx, LogInitUseCases)
		noteUseCase := app.NewNoteUseCase(store.Notes, publisher, app.WithNoteTTL(cfg.Notes.TTL))
		archiver := app.NewArchiver(ctx, store.Notes, cfg.Archive.Timezone, nil)

		log.Info(ctx, LogInitGRPCServer)
		grpcServer := grpc.New(&cfg.GRPC)
		if err := grpcServer.Start(ctx); err != nil {
			log.Error(ctx, ErrStartGRPC, zap.Error(err))
			store.Close(ctx)
			exitCode = 1
			return
		}

		log.Info(ctx, LogInitHTTPServer)
		httpServer := notehttp.NewServer(&cfg.HTTP, noteUseCase, store.Notes)

		runCtx, stopBackground := context.WithCancel(ctx)
		background := func(name string, fn func(context.Context) error) {
			go func() {
				if err := fn(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error(ctx, ErrBackground, zap.String("task", name), zap.Error(err))
				}
			}()
		}

		background("http", func(context.Context) error {
			if err := httpServer.Start(ctx); err != nil {
				log.Error(ctx, ErrStartHTTP, zap.Error(err))
				stopBackground()
				return err
			}
			return nil
		})
		background("health", grpc.NewHealthReporter(grpcServer, store.Notes, cfg.GRPC.HealthInterval).Run)
		background("purge", func(ctx context.Context) error {
			return store.RunPurge(ctx, cfg.Store.PurgeInterval)
		})
		if cfg.Archive.Enabled {
			background("archive", app.NewScheduler(archiver, cfg.Archive.Offset).Run)
		} else {
			log.Info(ctx, LogArchiveDisabled)
		}

		log.Info(ctx, LogServiceStarted,
			zap.String("environment", string(cfg.Logging.GetEnvironment())),
			zap.String("log_level", cfg.Logging.Level),
			zap.String("startup_time", time.Now().Format(time.RFC3339)))

		shutdown.Wait(runCtx, cfg.Shutdown.GetTimeout(),
			func(ctx context.Context) error {
				stopBackground()
				httpErr := httpServer.Stop(ctx)
				grpcServer.Stop(ctx)

				log.Info(ctx, LogClosingStore)
				store.Close(ctx)
				return httpErr
			},
		)

		log.Info(ctx, LogServiceShutdownDone)
	}()

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
