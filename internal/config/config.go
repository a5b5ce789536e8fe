package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	AMQP        AMQPConfig
	Reservation ReservationConfig
	Scheduler   SchedulerConfig
	RateLimit   RateLimitConfig
	Log         LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type StorageConfig struct {
	// Driver is "postgres" or "memory".
	Driver string
	// Seed loads the demo catalog on start.
	Seed bool
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

// RedisConfig with an empty Addr disables caching, replay protection and
// rate limiting.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AMQPConfig with an empty URL disables booking events.
type AMQPConfig struct {
	URL string
}

type ReservationConfig struct {
	HoldWindow     time.Duration
	MaxAttempts    int
	RetryBackoff   time.Duration
	SeatMapTTL     time.Duration
	IdempotencyTTL time.Duration
}

type SchedulerConfig struct {
	ExpireInterval   time.Duration
	ValidateInterval time.Duration
}

type RateLimitConfig struct {
	Claims int
	Window time.Duration
}

type LogConfig struct {
	Level slog.Level
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	var (
		cfg Config
		err error
	)

	cfg.Server.Host = envString("SERVER_HOST", "localhost")
	if cfg.Server.Port, err = envInt("SERVER_PORT", 8080); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.Storage.Driver = strings.ToLower(envString("STORAGE_DRIVER", StoragePostgres))
	if cfg.Storage.Seed, err = envBool("STORAGE_SEED", false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch cfg.Storage.Driver {
	case StoragePostgres:
		if cfg.Postgres, err = postgresFromEnv(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	case StorageMemory:
	default:
		return nil, fmt.Errorf("%s: invalid STORAGE_DRIVER %q", op, cfg.Storage.Driver)
	}

	// An unset REDIS_ADDR falls back to the local default; an empty one
	// turns Redis off.
	redisAddr, ok := os.LookupEnv("REDIS_ADDR")
	if !ok {
		redisAddr = "localhost:6379"
	}

	cfg.Redis = RedisConfig{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	}
	if cfg.Redis.DB, err = envInt("REDIS_DB", 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.AMQP.URL = os.Getenv("AMQP_URL")
	if cfg.AMQP.URL == "" {
		cfg.AMQP.URL = os.Getenv("RABBITMQ_URL")
	}

	if cfg.Reservation.HoldWindow, err = envDuration("RESERVATION_HOLD_WINDOW", 10*time.Minute); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Reservation.MaxAttempts, err = envInt("RESERVATION_MAX_ATTEMPTS", 5); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Reservation.RetryBackoff, err = envDuration("RESERVATION_RETRY_BACKOFF", 10*time.Millisecond); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Reservation.SeatMapTTL, err = envDuration("RESERVATION_SEATMAP_TTL", 5*time.Second); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Reservation.IdempotencyTTL, err = envDuration("RESERVATION_IDEMPOTENCY_TTL", 2*time.Hour); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.Scheduler.ExpireInterval, err = envDuration("SCHEDULER_EXPIRE_INTERVAL", 30*time.Second); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Scheduler.ValidateInterval, err = envDuration("SCHEDULER_VALIDATE_INTERVAL", 15*time.Minute); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.RateLimit.Claims, err = envInt("RATE_LIMIT_CLAIMS", 10); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.RateLimit.Window, err = envDuration("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.Log.Level.UnmarshalText([]byte(envString("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("%s: invalid LOG_LEVEL: %w", op, err)
	}

	return &cfg, nil
}

func postgresFromEnv() (PostgresConfig, error) {
	var (
		pg  PostgresConfig
		err error
	)

	pg.Host = envString("POSTGRES_HOST", "localhost")
	if pg.Port, err = envInt("POSTGRES_PORT", 5432); err != nil {
		return pg, err
	}

	if pg.User = os.Getenv("POSTGRES_USER"); pg.User == "" {
		return pg, fmt.Errorf("missing POSTGRES_USER")
	}

	if pg.Password = os.Getenv("POSTGRES_PASSWORD"); pg.Password == "" {
		return pg, fmt.Errorf("missing POSTGRES_PASSWORD")
	}

	if pg.Name = os.Getenv("POSTGRES_DB"); pg.Name == "" {
		return pg, fmt.Errorf("missing POSTGRES_DB")
	}

	pg.SSLMode = envString("POSTGRES_SSLMODE", "disable")

	maxConns, err := envInt("POSTGRES_MAX_CONNS", 0)
	if err != nil {
		return pg, err
	}
	pg.MaxConns = int32(maxConns)

	return pg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
