// Package config loads and validates redrust-go's runtime configuration
// from flags, environment variables, and an optional config file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the redrust-go server.
type Config struct {
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	KeysLimit        int    `mapstructure:"keys_limit"`
	EvictionStrategy string `mapstructure:"eviction_strategy"`
	AOFFile          string `mapstructure:"aof_file"`

	LogLevel    string `mapstructure:"log_level"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// DefaultConfig returns a Config populated with spec-mandated defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:             "0.0.0.0",
		Port:             7379,
		KeysLimit:        5,
		EvictionStrategy: "simple-first",
		AOFFile:          "./redrust-master.aof",
		LogLevel:         "info",
		MetricsAddr:      "",
	}
}

// Load reads configuration from environment variables, an optional config
// file, and whatever flags the caller already bound into v.
func Load(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()

	v.SetConfigName("redrust")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/redrust/")
	v.AddConfigPath("$HOME/.redrust")

	v.SetEnvPrefix("REDRUST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("host", config.Host)
	v.SetDefault("port", config.Port)
	v.SetDefault("keys_limit", config.KeysLimit)
	v.SetDefault("eviction_strategy", config.EvictionStrategy)
	v.SetDefault("aof_file", config.AOFFile)
	v.SetDefault("log_level", config.LogLevel)
	v.SetDefault("metrics_addr", config.MetricsAddr)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}

	validLevels := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	ok := false
	for _, level := range validLevels {
		if c.LogLevel == level {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLevels, ", "))
	}

	return nil
}

// String renders a one-line summary of the resolved configuration.
func (c *Config) String() string {
	return fmt.Sprintf("redrust-go config: %s:%d, keys_limit=%d, eviction=%s, aof_file=%s",
		c.Host, c.Port, c.KeysLimit, c.EvictionStrategy, c.AOFFile)
}
