package config

import (
	"fmt"
	"time"
)

// Поддерживаемые хранилища заметок.
const (
	StoreDriverRedis    = "redis"
	StoreDriverPostgres = "postgres"
)

// StoreConfig выбирает хранилище и общие параметры доступа к нему.
type StoreConfig struct {
	Driver           string        `yaml:"driver" env:"NOTES_STORE_DRIVER" env-default:"redis"`
	OperationTimeout time.Duration `yaml:"operation_timeout" env:"NOTES_STORE_OPERATION_TIMEOUT" env-default:"3s"`
	PageSize         int           `yaml:"page_size" env:"NOTES_STORE_PAGE_SIZE" env-default:"100"`
	PurgeInterval    time.Duration `yaml:"purge_interval" env:"NOTES_STORE_PURGE_INTERVAL" env-default:"1h"`
	ConnectAttempts  int           `yaml:"connect_attempts" env:"NOTES_STORE_CONNECT_ATTEMPTS" env-default:"5"`
	ConnectBackoff   time.Duration `yaml:"connect_backoff" env:"NOTES_STORE_CONNECT_BACKOFF" env-default:"500ms"`
}

// PostgresConfig содержит настройки подключения к базе данных.
type PostgresConfig struct {
	Host           string `yaml:"host" env:"NOTES_POSTGRES_HOST" env-default:"0.0.0.0"`
	Port           int    `yaml:"port" env:"NOTES_POSTGRES_PORT" env-default:"5433"`
	User           string `yaml:"user" env:"NOTES_POSTGRES_USER" env-default:"postgres"`
	Password       string `yaml:"password" env:"NOTES_POSTGRES_PASSWORD" env-default:"postgres"`
	Database       string `yaml:"database" env:"NOTES_POSTGRES_DB" env-default:"notes"`
	MinConn        int    `yaml:"min_conn" env:"NOTES_POSTGRES_MIN_CONN" env-default:"1"`
	MaxConn        int    `yaml:"max_conn" env:"NOTES_POSTGRES_MAX_CONN" env-default:"10"`
	MigrationsPath string `yaml:"migrations_path" env:"NOTES_POSTGRES_MIGRATIONS_PATH" env-default:"file://migrations/notes"`
}

// GetDSN возвращает строку подключения к Postgres.
func (p *PostgresConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.Database)
}

// GetConnectionURL возвращает URL-строку подключения для миграций.
func (p *PostgresConfig) GetConnectionURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		p.User, p.Password, p.Host, p.Port, p.Database)
}
