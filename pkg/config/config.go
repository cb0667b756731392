package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Results feed
	ResultsFeedURL string

	// Settlement
	SettlementWorkers        int
	SettlementMaxAttempts    int
	SettlementRetryBaseDelay time.Duration
	SettlementJobTimeout     time.Duration

	// Event queue
	QueueMode    string // "kafka" or "channel"
	KafkaBrokers string // comma-separated host:port list
	KafkaTopic   string
	KafkaGroupID string

	// Storage
	StorageMode  string // "postgres" or "memory"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Results feed defaults
		ResultsFeedURL: getEnvOrDefault("RESULTS_FEED_URL", "http://localhost:9090"),

		// Settlement defaults
		SettlementWorkers:        getIntOrDefault("SETTLEMENT_WORKERS", 4),
		SettlementMaxAttempts:    getIntOrDefault("SETTLEMENT_MAX_ATTEMPTS", 5),
		SettlementRetryBaseDelay: getDurationOrDefault("SETTLEMENT_RETRY_BASE_DELAY", 100*time.Millisecond),
		SettlementJobTimeout:     getDurationOrDefault("SETTLEMENT_JOB_TIMEOUT", 30*time.Second),

		// Queue defaults
		QueueMode:    getEnvOrDefault("QUEUE_MODE", "channel"),
		KafkaBrokers: getEnvOrDefault("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:   getEnvOrDefault("KAFKA_TOPIC", "game-finished"),
		KafkaGroupID: getEnvOrDefault("KAFKA_GROUP_ID", "sportsbook-settlement"),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "memory"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "sportsbook"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "sportsbook123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "sportsbook"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.ResultsFeedURL == "" {
		return fmt.Errorf("RESULTS_FEED_URL cannot be empty")
	}

	if c.SettlementWorkers <= 0 {
		return fmt.Errorf("SETTLEMENT_WORKERS must be positive, got %d", c.SettlementWorkers)
	}

	if c.SettlementMaxAttempts <= 0 {
		return fmt.Errorf("SETTLEMENT_MAX_ATTEMPTS must be positive, got %d", c.SettlementMaxAttempts)
	}

	if c.QueueMode != "kafka" && c.QueueMode != "channel" {
		return fmt.Errorf("QUEUE_MODE must be 'kafka' or 'channel', got %q", c.QueueMode)
	}

	if c.QueueMode == "kafka" && c.KafkaBrokers == "" {
		return fmt.Errorf("KAFKA_BROKERS cannot be empty in kafka mode")
	}

	if c.StorageMode != "postgres" && c.StorageMode != "memory" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'memory', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
