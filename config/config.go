// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads operator configuration for a royalty ledger.
//
// Values come from a YAML file, then .env files next to it, then ROYALTY_*
// environment variables, each overriding the previous.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ROYALTY_NETWORK.
const EnvPrefix = "ROYALTY"

// configFileName is the file name inside the data directory.
const configFileName = "config.yaml"

// Config is the operator configuration.
type Config struct {
	DataDir   string `mapstructure:"datadir"`
	Network   string `mapstructure:"network"`
	LogLevel  string `mapstructure:"loglevel"`
	LogFile   string `mapstructure:"logfile"`
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
	Owner     string `mapstructure:"owner"`  // contract owner principal
	Oracle    string `mapstructure:"oracle"` // initial oracle principal
}

// keys lists every config key, in file order.
var keys = []string{"datadir", "network", "loglevel", "logfile", "debug", "sentry_dsn", "owner", "oracle"}

// DefaultDataDir returns ~/.royalty, or .royalty if the home directory is
// unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".royalty"
	}
	return filepath.Join(home, ".royalty")
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		DataDir:  DefaultDataDir(),
		Network:  "mainnet",
		LogLevel: "info",
	}
}

// ConfigPath returns the config file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, configFileName)
}

// DBPath returns the ledger database path inside the data directory.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	def := DefaultConfig()
	v.SetDefault("datadir", def.DataDir)
	v.SetDefault("network", def.Network)
	v.SetDefault("loglevel", def.LogLevel)
	v.SetDefault("logfile", def.LogFile)
	v.SetDefault("debug", def.Debug)
	v.SetDefault("sentry_dsn", def.SentryDSN)
	v.SetDefault("owner", def.Owner)
	v.SetDefault("oracle", def.Oracle)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees env values for keys viper knows about.
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
	return v
}

// loadEnv loads .env then .env.local from dir into the process environment.
func loadEnv(dir string) {
	for _, name := range []string{".env", ".env.local"} {
		_ = godotenv.Overload(filepath.Join(dir, name)) // later files win
	}
}

// LoadConfig reads the config file at path, applying .env files from the
// same directory and ROYALTY_* environment overrides. Unset keys keep their
// defaults.
func LoadConfig(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
	}
	loadEnv(filepath.Dir(path))

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// LoadEnvConfig builds a config from defaults and the environment only.
func LoadEnvConfig() (Config, error) {
	v := newViper()
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML, creating parent directories.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: failed to create directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("datadir", cfg.DataDir)
	v.Set("network", cfg.Network)
	v.Set("loglevel", cfg.LogLevel)
	v.Set("logfile", cfg.LogFile)
	v.Set("debug", cfg.Debug)
	v.Set("sentry_dsn", cfg.SentryDSN)
	v.Set("owner", cfg.Owner)
	v.Set("oracle", cfg.Oracle)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	return os.Chmod(path, 0600)
}
