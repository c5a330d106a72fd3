package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v6"
)

// MongoConfig holds configuration for the physical document store.
type MongoConfig struct {
	URI            string        `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	ConnectTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"30s"`
	MaxPoolSize    uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`
	MinPoolSize    uint64        `env:"MONGODB_MIN_POOL_SIZE" envDefault:"2"`
}

// PostgresConfig holds configuration for the metadata catalog store.
type PostgresConfig struct {
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	Database string `env:"POSTGRES_DB" envDefault:"docbase"`
	User     string `env:"POSTGRES_USER" envDefault:"docbase"`
	Password string `env:"POSTGRES_PASSWORD"`
	MaxConns int    `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns int    `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
}

// RedisConfig holds configuration for the rollup cache.
type RedisConfig struct {
	Addr      string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password  string        `env:"REDIS_PASSWORD"`
	DB        int           `env:"REDIS_DB" envDefault:"0"`
	RollupTTL time.Duration `env:"ROLLUP_CACHE_TTL" envDefault:"5m"`
}

// LimitsConfig bounds request-level parameters.
type LimitsConfig struct {
	DefaultPageSize int `env:"DEFAULT_PAGE_SIZE" envDefault:"20"`
	MaxPageSize     int `env:"MAX_PAGE_SIZE" envDefault:"100"`
}

// Config holds all configuration for the gateway module.
type Config struct {
	Mongo    MongoConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Limits   LimitsConfig
}

// LoadConfig loads configuration from environment variables and applies
// defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Mongo); err != nil {
		return nil, errors.New("failed to load mongo configuration from environment: " + err.Error())
	}
	if err := env.Parse(&cfg.Postgres); err != nil {
		return nil, errors.New("failed to load postgres configuration from environment: " + err.Error())
	}
	if err := env.Parse(&cfg.Redis); err != nil {
		return nil, errors.New("failed to load redis configuration from environment: " + err.Error())
	}
	if err := env.Parse(&cfg.Limits); err != nil {
		return nil, errors.New("failed to load limits configuration from environment: " + err.Error())
	}

	if cfg.Limits.DefaultPageSize <= 0 {
		cfg.Limits.DefaultPageSize = 20
	}
	if cfg.Limits.MaxPageSize <= 0 {
		cfg.Limits.MaxPageSize = 100
	}
	if cfg.Limits.DefaultPageSize > cfg.Limits.MaxPageSize {
		cfg.Limits.DefaultPageSize = cfg.Limits.MaxPageSize
	}

	return cfg, nil
}

// DefaultConfig returns a Config with local-development defaults.
func DefaultConfig() *Config {
	return &Config{
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			ConnectTimeout: 30 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    2,
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "docbase",
			User:     "docbase",
			MaxConns: 10,
			MinConns: 2,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			RollupTTL: 5 * time.Minute,
		},
		Limits: LimitsConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
	}
}
