package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataDir          string
	CountriesFile    string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration
	AnalysisInterval time.Duration

	// Kafka publishing configuration.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaRecordsTopic string
	KafkaAlertsTopic  string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	analysisInterval, err := parseDuration("ANALYSIS_INTERVAL", "6h")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:           envOrDefault("DATA_DIR", "data"),
		CountriesFile:     envOrDefault("COUNTRIES_FILE", "config/countries.yaml"),
		HTTPAddr:          envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		LogFormat:         envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:   shutdownTimeout,
		AnalysisInterval:  analysisInterval,
		KafkaEnabled:      os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:      parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaRecordsTopic: envOrDefault("KAFKA_RECORDS_TOPIC", "flood-trigger-records"),
		KafkaAlertsTopic:  envOrDefault("KAFKA_ALERTS_TOPIC", "flood-trigger-alerts"),
	}

	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	if cfg.CountriesFile == "" {
		return nil, errors.New("COUNTRIES_FILE is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
		}
		if cfg.KafkaRecordsTopic == "" || cfg.KafkaAlertsTopic == "" {
			return nil, errors.New("KAFKA_ENABLED is true but a Kafka topic is not set")
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
