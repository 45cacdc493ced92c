package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"gratitudeboard/internal/notes/config"
	"gratitudeboard/internal/notes/domain/entities"
	"gratitudeboard/internal/notes/ports/services"
	"gratitudeboard/pkg/resilience"
)

// ErrNoRedisClient возвращается, когда драйвер redis выбран без клиента.
var ErrNoRedisClient = errors.New("redis events driver requires a redis client")

// NopPublisher отбрасывает события.
type NopPublisher struct{}

// Publish ничего не делает.
func (NopPublisher) Publish(context.Context, entities.NoteEvent) error { return nil }

// New создает публикатор событий по cfg.Driver.
func New(cfg *config.EventsConfig, client redis.UniversalClient) (services.EventPublisher, error) {
	switch cfg.Driver {
	case config.EventsDriverRedis:
		if client == nil {
			return nil, ErrNoRedisClient
		}
		breakerCfg := resilience.DefaultCircuitBreakerConfig()
		if cfg.BreakerErrors > 0 {
			breakerCfg.ErrorThreshold = cfg.BreakerErrors
		}
		if cfg.BreakerTimeout > 0 {
			breakerCfg.Timeout = cfg.BreakerTimeout
		}
		breaker := resilience.NewCircuitBreaker("note-events", breakerCfg)
		return NewStreamPublisher(client, cfg.Stream, cfg.MaxLen, cfg.PublishTimeout, breaker), nil
	case config.EventsDriverLog:
		return NewLogPublisher(), nil
	case config.EventsDriverNone:
		return NopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}
