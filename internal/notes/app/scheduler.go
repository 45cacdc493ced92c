package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gratitudeboard/internal/notes/domain/entities"
	"gratitudeboard/pkg/logger"
)

// Константы для логирования планировщика.
const (
	LogSchedulerStarted = "archive scheduler started"
	LogSchedulerStopped = "archive scheduler stopped"
	LogNextRun          = "next archive run scheduled"
	LogRunFailed        = "scheduled archive run failed"
)

// Scheduler запускает архивацию каждую ночь в часовом поясе архиватора.
type Scheduler struct {
	archiver *Archiver
	offset   time.Duration
	after    func(time.Duration) <-chan time.Time
}

// NewScheduler создает планировщик. offset сдвигает запуск относительно полуночи.
func NewScheduler(archiver *Archiver, offset time.Duration) *Scheduler {
	return &Scheduler{archiver: archiver, offset: offset, after: time.After}
}

// NextRun возвращает момент следующего запуска и день, который он архивирует.
// Архивируется день, закончившийся к моменту запуска.
func (s *Scheduler) NextRun(now time.Time) (time.Time, string) {
	local := now.In(s.archiver.Location())
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())

	run := midnight.Add(s.offset)
	if !run.After(local) {
		midnight = midnight.AddDate(0, 0, 1)
		run = midnight.Add(s.offset)
	}
	return run, entities.DayOf(midnight.AddDate(0, 0, -1))
}

// Run выполняет архивацию по расписанию до отмены ctx.
func (s *Scheduler) Run(ctx context.Context) error {
	log := logger.Log(ctx).With(zap.String("component", "Scheduler"))
	log.Info(ctx, LogSchedulerStarted, zap.String("zone", s.archiver.Location().String()))

	for {
		now := s.archiver.now()
		next, day := s.NextRun(now)
		log.Info(ctx, LogNextRun, zap.Time("at", next), zap.String("day", day))

		select {
		case <-ctx.Done():
			log.Info(ctx, LogSchedulerStopped)
			return ctx.Err()
		case <-s.after(next.Sub(now)):
		}

		if _, err := s.archiver.RunArchive(ctx, day); err != nil {
			log.Error(ctx, LogRunFailed, zap.String("day", day), zap.Error(err))
		}
	}
}
