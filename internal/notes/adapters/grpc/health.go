package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"gratitudeboard/pkg/logger"
)

// ServiceName - имя службы в ответах grpc.health.v1.
const ServiceName = "gratitudeboard.notes"

// Константы для логирования.
const (
	LogHealthChanged = "health status changed"
)

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter переводит доступность хранилища в статус службы здоровья.
type HealthReporter struct {
	server   *Server
	store    Pinger
	interval time.Duration
	last     healthpb.HealthCheckResponse_ServingStatus
}

// NewHealthReporter создает репортер, опрашивающий store каждые interval.
func NewHealthReporter(server *Server, store Pinger, interval time.Duration) *HealthReporter {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthReporter{server: server, store: store, interval: interval}
}

// Check один раз опрашивает хранилище и обновляет статус.
func (r *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	err := r.store.Ping(ctx)
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	// Пустое имя - общий статус сервера.
	r.server.health.SetServingStatus("", status)
	r.server.health.SetServingStatus(ServiceName, status)

	if status != r.last {
		logger.Log(ctx).Info(ctx, LogHealthChanged, zap.String("status", status.String()), zap.Error(err))
		r.last = status
	}
	return status
}

// Run опрашивает хранилище до отмены ctx.
func (r *HealthReporter) Run(ctx context.Context) error {
	r.Check(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Check(ctx)
		}
	}
}
