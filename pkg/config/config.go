// Package config loads the CLI configuration from a YAML file and the
// QUASAR_* environment. Flags override loaded values in the CLI layer;
// library packages take explicit option structs and never read this.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds everything the CLI can read from a file or environment.
type Config struct {
	// DSN is the PostgreSQL connection string for export runs.
	// Environment: QUASAR_DSN.
	DSN string `mapstructure:"dsn"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// Format is the default output format: arrow, json, or jsonl.
	Format string `mapstructure:"format"`

	// Trace enables OpenTelemetry span export.
	Trace bool `mapstructure:"trace"`

	Compression struct {
		// Level applies when the output path requests compression,
		// on the 1 (fastest) to 9 (best) scale. Zero keeps the
		// codec default.
		Level int `mapstructure:"level"`
	} `mapstructure:"compression"`
}

// Load reads the configuration at path, or searches for quasar.yaml in
// the working directory and $HOME/.quasar when path is empty. A missing
// file is an error only when a path was given explicitly; environment
// variables and defaults always apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("quasar")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.quasar")
	}

	v.SetEnvPrefix("QUASAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so environment-only values survive
	// Unmarshal.
	v.SetDefault("dsn", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("format", "arrow")
	v.SetDefault("trace", false)
	v.SetDefault("compression.level", 0)

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
