// Package config loads server configuration with viper. Precedence:
// flags > environment (PIVOTD_*) > config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	// Addr is the listen address for the HTTP API.
	Addr string `mapstructure:"addr" yaml:"addr"`
	// LocalMaxRows is the routing threshold: sessions at or under it pivot
	// row-by-row in process, larger ones go through the columnar engine.
	LocalMaxRows int `mapstructure:"local_max_rows" yaml:"local_max_rows"`
	// CORSOrigins restricts browser origins; empty allows any.
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Load reads configuration from defaults, an optional config file and the
// environment. cfgFile == "" falls back to ~/.pivotd/config.yaml when that
// file exists.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PIVOTD")
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("local_max_rows", 50000)
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("log_level", "info")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".pivotd", "config.yaml")
		if _, statErr := os.Stat(path); statErr == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Save writes the configuration to cfgFile, or ~/.pivotd/config.yaml when
// empty, creating the directory if needed.
func Save(c *Config, cfgFile string) error {
	path := cfgFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".pivotd")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
