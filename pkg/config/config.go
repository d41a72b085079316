package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the platform services
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Streamer  StreamerConfig  `mapstructure:"streamer"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	API       APIConfig       `mapstructure:"api"`
	Generator GeneratorConfig `mapstructure:"generator"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type AppConfig struct {
	Env string `mapstructure:"env"` // e.g., "local", "prod"
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file"` // empty: stdout only
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=duckdb mysql"`
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers" validate:"required_if=Enabled true"`
	AlertsTopic string   `mapstructure:"alerts_topic" validate:"required_if=Enabled true"`
}

type StreamerConfig struct {
	Port           string        `mapstructure:"port" validate:"required"`
	PriceSourceURL string        `mapstructure:"price_source_url" validate:"required,url"`
	InitialDelay   time.Duration `mapstructure:"initial_delay" validate:"gte=0"`
	Interval       time.Duration `mapstructure:"interval" validate:"gt=0"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
}

type IngestConfig struct {
	Port              string  `mapstructure:"port" validate:"required"`
	MessagesPerSecond float64 `mapstructure:"messages_per_second" validate:"gt=0"`
	Burst             int     `mapstructure:"burst" validate:"gt=0"`
}

type APIConfig struct {
	Port       string `mapstructure:"port" validate:"required"`
	UserHeader string `mapstructure:"user_header" validate:"required"`
}

type GeneratorConfig struct {
	Port            string `mapstructure:"port" validate:"required"`
	InstrumentsFile string `mapstructure:"instruments_file"` // empty: built-in instruments
}

type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Connections int64         `mapstructure:"connections" validate:"gt=0"`
	Window      time.Duration `mapstructure:"window" validate:"gt=0"`
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// .env values become real env vars so AutomaticEnv picks them up
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	setDefaults(v)

	// "streamer.interval" -> "STREAMER_INTERVAL"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Flat env vars only reach nested structs through explicit binds
	bindEnv(v, "app.env")
	bindEnv(v, "logger.level", "logger.file", "logger.max_size_mb", "logger.max_backups", "logger.max_age_days", "logger.compress")
	bindEnv(v, "database.driver", "database.dsn")
	bindEnv(v, "redis.addr", "redis.password", "redis.db")
	bindEnv(v, "kafka.enabled", "kafka.brokers", "kafka.alerts_topic")
	bindEnv(v, "streamer.port", "streamer.price_source_url", "streamer.initial_delay", "streamer.interval", "streamer.fetch_timeout")
	bindEnv(v, "ingest.port", "ingest.messages_per_second", "ingest.burst")
	bindEnv(v, "api.port", "api.user_header")
	bindEnv(v, "generator.port", "generator.instruments_file")
	bindEnv(v, "ratelimit.enabled", "ratelimit.connections", "ratelimit.window")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct tags of every section.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Default returns the configuration LoadConfig produces with no env or .env overrides.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// defaults alone always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "local")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 14)
	v.SetDefault("logger.compress", true)

	// The services run as separate processes over one store; a DuckDB file
	// admits a single process, so it is for tests and fxctl only.
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "fx:fx@tcp(localhost:3306)/fx_platform?parseTime=true")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.alerts_topic", "fx.alerts")

	v.SetDefault("streamer.port", ":8081")
	v.SetDefault("streamer.price_source_url", "http://price-generator:5000")
	v.SetDefault("streamer.initial_delay", "1s")
	v.SetDefault("streamer.interval", "5s")
	v.SetDefault("streamer.fetch_timeout", "5s")

	v.SetDefault("ingest.port", ":8082")
	v.SetDefault("ingest.messages_per_second", 5)
	v.SetDefault("ingest.burst", 10)

	v.SetDefault("api.port", ":8080")
	v.SetDefault("api.user_header", "X-User-ID")

	v.SetDefault("generator.port", ":5000")
	v.SetDefault("generator.instruments_file", "")

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.connections", 30)
	v.SetDefault("ratelimit.window", "1m")
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
