package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the scout service
type Config struct {
	Telegram    TelegramConfig
	Kafka       KafkaConfig
	ConfigStore ConfigStoreConfig
	Pipeline    PipelineConfig
	Logging     LoggingConfig
	Service     ServiceConfig
}

// TelegramConfig holds Telegram MTProto configuration
type TelegramConfig struct {
	APIID      int
	APIHash    string
	SessionDir string
	Phone      string
}

// KafkaConfig holds Kafka configuration for the downstream handoff
type KafkaConfig struct {
	Brokers         []string
	TopicCandidates string
}

// ConfigStoreConfig holds the channel configuration store endpoint
type ConfigStoreConfig struct {
	BaseURL         string
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
}

// PipelineConfig holds tuning for the message processing pipeline
type PipelineConfig struct {
	MinTextLength     int
	IdleWindow        time.Duration
	DedupRetention    time.Duration
	DedupCapacity     int
	RateLimitInterval time.Duration
	RateLimitBurst    int
	ExcludedWords     []string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// ServiceConfig holds service configuration
type ServiceConfig struct {
	Name string
	Port string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	apiID, err := strconv.Atoi(getEnv("TELEGRAM_API_ID", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_API_ID: %w", err)
	}

	refreshInterval, err := time.ParseDuration(getEnv("CHANNEL_REFRESH_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CHANNEL_REFRESH_INTERVAL: %w", err)
	}

	requestTimeout, err := time.ParseDuration(getEnv("CONFIG_STORE_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CONFIG_STORE_TIMEOUT: %w", err)
	}

	minTextLength, err := strconv.Atoi(getEnv("PIPELINE_MIN_TEXT_LENGTH", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid PIPELINE_MIN_TEXT_LENGTH: %w", err)
	}

	idleWindow, err := time.ParseDuration(getEnv("PIPELINE_IDLE_WINDOW", "3s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PIPELINE_IDLE_WINDOW: %w", err)
	}

	dedupRetention, err := time.ParseDuration(getEnv("DEDUP_RETENTION", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEDUP_RETENTION: %w", err)
	}

	dedupCapacity, err := strconv.Atoi(getEnv("DEDUP_CAPACITY", "50000"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEDUP_CAPACITY: %w", err)
	}

	rateLimitInterval, err := time.ParseDuration(getEnv("RATE_LIMIT_INTERVAL", "100ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_INTERVAL: %w", err)
	}

	rateLimitBurst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	excludedWords := []string{}
	excludedStr := getEnv("PIPELINE_EXCLUDED_WORDS", "")
	if excludedStr != "" {
		for _, w := range strings.Split(excludedStr, ",") {
			w = strings.TrimSpace(w)
			if w != "" {
				excludedWords = append(excludedWords, w)
			}
		}
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			APIID:      apiID,
			APIHash:    getEnv("TELEGRAM_API_HASH", ""),
			SessionDir: getEnv("TELEGRAM_SESSION_DIR", "./sessions"),
			Phone:      getEnv("TELEGRAM_PHONE", ""),
		},
		Kafka: KafkaConfig{
			Brokers:         strings.Split(getEnv("KAFKA_BROKERS", "localhost:9093"), ","),
			TopicCandidates: getEnv("KAFKA_TOPIC_CANDIDATES", "posts.candidates"),
		},
		ConfigStore: ConfigStoreConfig{
			BaseURL:         getEnv("CONFIG_STORE_URL", "http://localhost:8085"),
			RefreshInterval: refreshInterval,
			RequestTimeout:  requestTimeout,
		},
		Pipeline: PipelineConfig{
			MinTextLength:     minTextLength,
			IdleWindow:        idleWindow,
			DedupRetention:    dedupRetention,
			DedupCapacity:     dedupCapacity,
			RateLimitInterval: rateLimitInterval,
			RateLimitBurst:    rateLimitBurst,
			ExcludedWords:     excludedWords,
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Service: ServiceConfig{
			Name: getEnv("SERVICE_NAME", "scout-service"),
			Port: getEnv("SERVICE_PORT", "8084"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram.APIID == 0 {
		return fmt.Errorf("TELEGRAM_API_ID is required")
	}

	if c.Telegram.APIHash == "" {
		return fmt.Errorf("TELEGRAM_API_HASH is required")
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}

	if c.ConfigStore.BaseURL == "" {
		return fmt.Errorf("CONFIG_STORE_URL is required")
	}

	if c.Pipeline.IdleWindow <= 0 {
		return fmt.Errorf("PIPELINE_IDLE_WINDOW must be positive")
	}

	if c.Pipeline.DedupCapacity <= 0 {
		return fmt.Errorf("DEDUP_CAPACITY must be positive")
	}

	return nil
}

// Out loads the configuration and fans sub-sections out for fx DI
func Out() (*Config, *TelegramConfig, *KafkaConfig, *ConfigStoreConfig, *PipelineConfig, *LoggingConfig, *ServiceConfig, error) {
	cfg, err := Load()
	if err != nil {
		return nil, nil, nil, nil, nil, nil, nil, err
	}
	return cfg, &cfg.Telegram, &cfg.Kafka, &cfg.ConfigStore, &cfg.Pipeline, &cfg.Logging, &cfg.Service, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
