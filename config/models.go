package config

import "time"

// Config holds the configuration of the application
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Inference InferenceConfig `mapstructure:"inference"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Purge     PurgeConfig     `mapstructure:"purge"`
}

type StoreConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// InferenceConfig configures the client for the external annotation
// recommendation service.
type InferenceConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxRetry  int           `mapstructure:"max_retry"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	Secret   string `mapstructure:"secret"`
	Required bool   `mapstructure:"required"`
}

// PurgeConfig controls hard-deletion of soft-deleted document edits.
type PurgeConfig struct {
	Every         time.Duration `mapstructure:"every"`
	RetentionDays int           `mapstructure:"retention_days"`
}
