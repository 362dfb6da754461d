package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "a-very-secret-key-should-be-longer-and-random"

// Config holds application configuration.
type Config struct {
	DatabaseURL        string
	DBMaxConns         int32
	MigrationsPath     string
	Port               string
	IsProduction       bool
	LogLevel           string
	JWTSecret          string
	RateLimit          string
	CORSAllowedOrigins []string
	Kafka              KafkaConfig
	Outbox             OutboxConfig
}

// KafkaConfig configures publication of ledger events.
type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	LedgerTopic string
}

// OutboxConfig tunes the outbox poller.
type OutboxConfig struct {
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	WorkerPoolSize int
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("MIGRATIONS_PATH", "migrations")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("RATE_LIMIT", "100-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_LEDGER_TOPIC", "ledger_events")

	v.SetDefault("OUTBOX_POLL_INTERVAL", 5*time.Second)
	v.SetDefault("OUTBOX_BATCH_SIZE", 100)
	v.SetDefault("OUTBOX_MAX_ATTEMPTS", 5)
	v.SetDefault("OUTBOX_WORKER_POOL_SIZE", 10)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:        v.GetString("PGSQL_URL"),
		DBMaxConns:         v.GetInt32("DB_MAX_CONNS"),
		MigrationsPath:     v.GetString("MIGRATIONS_PATH"),
		Port:               v.GetString("PORT"),
		IsProduction:       v.GetBool("IS_PRODUCTION"),
		LogLevel:           strings.ToLower(v.GetString("LOG_LEVEL")),
		JWTSecret:          v.GetString("JWT_SECRET"),
		RateLimit:          v.GetString("RATE_LIMIT"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		Kafka: KafkaConfig{
			Enabled:     v.GetBool("KAFKA_ENABLED"),
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			LedgerTopic: v.GetString("KAFKA_LEDGER_TOPIC"),
		},
		Outbox: OutboxConfig{
			PollInterval:   v.GetDuration("OUTBOX_POLL_INTERVAL"),
			BatchSize:      v.GetInt("OUTBOX_BATCH_SIZE"),
			MaxAttempts:    v.GetInt("OUTBOX_MAX_ATTEMPTS"),
			WorkerPoolSize: v.GetInt("OUTBOX_WORKER_POOL_SIZE"),
		},
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}
	if cfg.JWTSecret == defaultJWTSecret {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction && c.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.DBMaxConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be positive"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required when Kafka is enabled"))
		}
		if c.Kafka.LedgerTopic == "" {
			errs = append(errs, errors.New("KAFKA_LEDGER_TOPIC is required when Kafka is enabled"))
		}
	}
	if c.Outbox.PollInterval <= 0 {
		errs = append(errs, errors.New("OUTBOX_POLL_INTERVAL must be positive"))
	}
	if c.Outbox.BatchSize <= 0 {
		errs = append(errs, errors.New("OUTBOX_BATCH_SIZE must be positive"))
	}
	if c.Outbox.MaxAttempts <= 0 {
		errs = append(errs, errors.New("OUTBOX_MAX_ATTEMPTS must be positive"))
	}
	if c.Outbox.WorkerPoolSize <= 0 {
		errs = append(errs, errors.New("OUTBOX_WORKER_POOL_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
