// Package config loads runtime configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Env             string `mapstructure:"FHK_ENV"`
	DataDir         string `mapstructure:"FHK_DATA_DIR"`
	LogLevel        string `mapstructure:"FHK_LOG_LEVEL"`
	KDFIterations   int    `mapstructure:"FHK_KDF_ITERATIONS"`
	HistoryCapacity int    `mapstructure:"FHK_BACKUP_HISTORY_LIMIT"`
	Compress        bool   `mapstructure:"FHK_BACKUP_COMPRESS"`
	AutoBackupSpec  string `mapstructure:"FHK_AUTO_BACKUP_CRON"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("FHK_ENV", "development")
	v.SetDefault("FHK_DATA_DIR", ".fhk")
	v.SetDefault("FHK_LOG_LEVEL", "info")
	v.SetDefault("FHK_KDF_ITERATIONS", 210000)
	v.SetDefault("FHK_BACKUP_HISTORY_LIMIT", 10)
	v.SetDefault("FHK_BACKUP_COMPRESS", false)
	v.SetDefault("FHK_AUTO_BACKUP_CRON", "")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("FHK_ENV")
	v.BindEnv("FHK_DATA_DIR")
	v.BindEnv("FHK_LOG_LEVEL")
	v.BindEnv("FHK_KDF_ITERATIONS")
	v.BindEnv("FHK_BACKUP_HISTORY_LIMIT")
	v.BindEnv("FHK_BACKUP_COMPRESS")
	v.BindEnv("FHK_AUTO_BACKUP_CRON")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("FHK_DATA_DIR must not be empty")
	}
	if c.KDFIterations < 1000 {
		return fmt.Errorf("FHK_KDF_ITERATIONS must be at least 1000, got %d", c.KDFIterations)
	}
	if c.HistoryCapacity < 1 {
		return fmt.Errorf("FHK_BACKUP_HISTORY_LIMIT must be at least 1, got %d", c.HistoryCapacity)
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("FHK_LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.LogLevel)
	}
	return nil
}
