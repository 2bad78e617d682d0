package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	ServicePort int
	Detector    DetectorConfig
	Simulator   SimulatorConfig
	Stream      StreamConfig
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
	Redis       RedisConfig
	AnomalyLog  AnomalyLogConfig
}

// DetectorConfig holds the rolling z-score detector settings
type DetectorConfig struct {
	WindowSize int
	Threshold  float64
}

// SimulatorConfig holds the synthetic signal source settings
type SimulatorConfig struct {
	SeasonalPeriod int
	TrendFactor    float64
	NoiseLevel     float64
	Seed           int64
}

// StreamConfig holds the driver loop settings
type StreamConfig struct {
	Interval time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// RabbitMQConfig holds RabbitMQ connection and publishing settings
type RabbitMQConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// RedisConfig holds the snapshot store settings
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	RecentCap int
}

// AnomalyLogConfig holds the rotating anomaly log file settings
type AnomalyLogConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "stream-anomaly-worker"),
		ServicePort: getEnvAsInt("SERVICE_PORT", 8081),
		Detector: DetectorConfig{
			WindowSize: getEnvAsInt("DETECTOR_WINDOW_SIZE", 50),
			Threshold:  getEnvAsFloat("DETECTOR_THRESHOLD", 2.5),
		},
		Simulator: SimulatorConfig{
			SeasonalPeriod: getEnvAsInt("SIMULATOR_SEASONAL_PERIOD", 24),
			TrendFactor:    getEnvAsFloat("SIMULATOR_TREND_FACTOR", 0.1),
			NoiseLevel:     getEnvAsFloat("SIMULATOR_NOISE_LEVEL", 0.3),
			Seed:           getEnvAsInt64("SIMULATOR_SEED", 0),
		},
		Stream: StreamConfig{
			Interval: time.Duration(getEnvAsInt("STREAM_INTERVAL_MS", 50)) * time.Millisecond,
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:        getEnv("RABBITMQ_URL", ""),
			Exchange:   getEnv("RABBITMQ_EXCHANGE", "stream-anomaly.events.exchange"),
			RoutingKey: getEnv("RABBITMQ_ROUTING_KEY", "stream.sample.classified"),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			RecentCap: getEnvAsInt("REDIS_RECENT_CAP", 100),
		},
		AnomalyLog: AnomalyLogConfig{
			File:       getEnv("ANOMALY_LOG_FILE", "anomalies.log"),
			MaxSizeMB:  getEnvAsInt("ANOMALY_LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvAsInt("ANOMALY_LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("ANOMALY_LOG_MAX_AGE_DAYS", 30),
			Compress:   getEnvAsBool("ANOMALY_LOG_COMPRESS", true),
		},
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
