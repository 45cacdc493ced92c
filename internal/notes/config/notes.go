package config

import "time"

// NotesConfig - параметры жизненного цикла заметок.
type NotesConfig struct {
	TTL time.Duration `yaml:"ttl" env:"NOTES_NOTE_TTL" env-default:"168h"`
}

// ArchiveConfig - параметры ночной архивации.
type ArchiveConfig struct {
	Enabled  bool          `yaml:"enabled" env:"NOTES_ARCHIVE_ENABLED" env-default:"true"`
	Timezone string        `yaml:"timezone" env:"NOTES_ARCHIVE_TIMEZONE" env-default:"UTC"`
	Offset   time.Duration `yaml:"offset" env:"NOTES_ARCHIVE_OFFSET" env-default:"0s"`
}

// Поддерживаемые способы публикации событий.
const (
	EventsDriverRedis = "redis"
	EventsDriverLog   = "log"
	EventsDriverNone  = "none"
)

// EventsConfig - публикация событий жизненного цикла.
type EventsConfig struct {
	Driver         string        `yaml:"driver" env:"NOTES_EVENTS_DRIVER" env-default:"log"`
	Stream         string        `yaml:"stream" env:"NOTES_EVENTS_STREAM" env-default:"notes:events"`
	MaxLen         int64         `yaml:"max_len" env:"NOTES_EVENTS_MAX_LEN" env-default:"10000"`
	PublishTimeout time.Duration `yaml:"publish_timeout" env:"NOTES_EVENTS_PUBLISH_TIMEOUT" env-default:"1s"`
	BreakerErrors  int           `yaml:"breaker_errors" env:"NOTES_EVENTS_BREAKER_ERRORS" env-default:"5"`
	BreakerTimeout time.Duration `yaml:"breaker_timeout" env:"NOTES_EVENTS_BREAKER_TIMEOUT" env-default:"30s"`
}
