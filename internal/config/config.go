package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Callback   CallbackConfig   `mapstructure:"callback"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig points at the PostgreSQL job archive. An empty URL
// disables persistence; Redis stays the primary job store either way.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// StorageConfig describes the S3-compatible object store (R2) holding
// the input datasets and result files.
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

type EngineConfig struct {
	DefaultTopK    int       `mapstructure:"default_top_k"`
	ChunkSize      int       `mapstructure:"chunk_size"`
	PenaltyWeights []float64 `mapstructure:"penalty_weights"`
}

type CallbackConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	// Environment variable overrides
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// ENGINE_PENALTY_WEIGHTS may arrive as a JSON array string from the
	// environment, e.g. "[0.0, 0.15, 0.5, 0.85]".
	if raw := viper.GetString("engine.penalty_weights"); strings.HasPrefix(strings.TrimSpace(raw), "[") {
		var weights []float64
		if err := json.Unmarshal([]byte(raw), &weights); err != nil {
			return nil, fmt.Errorf("parsing engine.penalty_weights: %w", err)
		}
		config.Engine.PenaltyWeights = weights
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Redis defaults
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.timeout", "5s")

	// Database defaults
	viper.SetDefault("database.max_connections", 10)
	viper.SetDefault("database.connect_timeout", "10s")

	// Kafka defaults
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.topic", "recommendation-batches")

	// Storage defaults
	viper.SetDefault("storage.bucket", "recflow")
	viper.SetDefault("storage.region", "auto")
	viper.SetDefault("storage.use_ssl", true)

	// Engine defaults
	viper.SetDefault("engine.default_top_k", 10)
	viper.SetDefault("engine.chunk_size", 50_000)
	viper.SetDefault("engine.penalty_weights", []float64{0.00, 0.15, 0.50, 0.85})

	// Callback defaults
	viper.SetDefault("callback.timeout", "30s")
	viper.SetDefault("callback.max_retries", 3)
	viper.SetDefault("callback.retry_delay", "2s")

	// Auth defaults
	viper.SetDefault("auth.enabled", false)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")
}
