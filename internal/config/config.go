// Package config loads batchmon configuration from YAML files, environment
// variables and defaults through viper, and hot-reloads it on SIGHUP or
// when the config file changes.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides (BATCHMON_SERVER_PORT, ...).
const EnvPrefix = "BATCHMON"

// configFilePath stores the path to the loaded config file
var configFilePath string

// Init initializes the configuration subsystem.
// It searches for configuration files in priority order:
//  1. Directory specified by BATCHMON_CONFIG_DIR environment variable
//  2. ~/.config/batchmon/
//  3. Current working directory (.)
//
// If no config file is found, defaults are used.
// If a config file exists but is invalid or unreadable, Init returns an error.
func Init() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// BATCHMON_STORE_BACKEND overrides store.backend
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Search paths, highest priority first
	if envPath := os.Getenv(EnvPrefix + "_CONFIG_DIR"); envPath != "" {
		viper.AddConfigPath(envPath)
	}

	if home := os.Getenv("HOME"); home != "" {
		viper.AddConfigPath(filepath.Join(home, ".config", appDirName))
	}

	viper.AddConfigPath(".")

	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Running without a file is supported; defaults and env apply
			configFilePath = ""
			return commit()
		}
		return fmt.Errorf("failed to read config; %w", err)
	}

	configFilePath = viper.ConfigFileUsed()
	slog.Info("config initialized", "file", configFilePath)

	return commit()
}

// Get returns the effective typed configuration from the global viper
// instance, validated.
func Get() (*Config, error) {
	return unmarshalConfig(viper.GetViper())
}

// Current returns the last configuration that loaded and validated
// successfully, or defaults before Init.
func Current() *Config {
	if cfg := current.Load(); cfg != nil {
		return cfg
	}
	cfg := NewDefaultConfig()
	return &cfg
}

// ConfigFilePath returns the path to the loaded config file,
// or empty string if using defaults only.
func ConfigFilePath() string {
	return configFilePath
}

// Reset clears the configuration state for testing purposes.
func Reset() {
	viper.Reset()
	configFilePath = ""
	current.Store(nil)
	resetSubscribers()
}

// ExpandHome expands a leading ~ in path to the user's home directory.
func ExpandHome(path string) string {
	return expandHome(path)
}

// expandHome expands a leading ~ in path to the user's home directory.
// Only expands "~" alone or "~/..." patterns. Patterns like "~user" are not expanded.
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	if len(path) > 1 && path[1] != '/' {
		return path
	}

	home := resolveHomeDir()
	if home == "" {
		return path
	}

	if len(path) == 1 {
		return home
	}

	return filepath.Join(home, path[2:])
}

// GetConfigPath returns the path where the config file should be located.
// If a config file is loaded, returns its path. Otherwise returns the default path.
func GetConfigPath() string {
	if configFilePath != "" {
		return configFilePath
	}
	return DefaultConfigPath()
}

// Reload re-reads the configuration from disk.
// On failure, the previous configuration is retained.
func Reload() error {
	currentSettings := viper.AllSettings()

	if err := viper.ReadInConfig(); err != nil {
		for key, value := range currentSettings {
			viper.Set(key, value)
		}
		slog.Error("config reload failed; retaining previous values", "error", err)
		return fmt.Errorf("failed to reload config; %w", err)
	}

	if err := commit(); err != nil {
		for key, value := range currentSettings {
			viper.Set(key, value)
		}
		slog.Error("reloaded config is invalid; retaining previous values", "error", err)
		return err
	}

	slog.Info("config reloaded", "file", viper.ConfigFileUsed())
	return nil
}
