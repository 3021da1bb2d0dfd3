package config

import (
	"net"
	"os"
	"strconv"
	"time"
)

// Config is the root configuration structure for the application.
type Config struct {
	LogLevel      string       `yaml:"log_level" mapstructure:"log_level"`
	LogFile       string       `yaml:"log_file" mapstructure:"log_file"`
	LogMaxSizeMB  int          `yaml:"log_max_size_mb" mapstructure:"log_max_size_mb"`
	LogMaxBackups int          `yaml:"log_max_backups" mapstructure:"log_max_backups"`
	LogMaxAgeDays int          `yaml:"log_max_age_days" mapstructure:"log_max_age_days"`
	Server        ServerConfig `yaml:"server" mapstructure:"server"`
	Store         StoreConfig  `yaml:"store" mapstructure:"store"`
	Export        ExportConfig `yaml:"export" mapstructure:"export"`
	Client        ClientConfig `yaml:"client" mapstructure:"client"`
}

// ServerConfig holds the HTTP service configuration.
type ServerConfig struct {
	Bind            string  `yaml:"bind" mapstructure:"bind"`
	Port            int     `yaml:"port" mapstructure:"port"`
	ShutdownTimeout int     `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"` // seconds
	RateLimit       float64 `yaml:"rate_limit" mapstructure:"rate_limit"`             // requests/second, 0 = disabled
	RateBurst       int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// ShutdownTimeoutDuration returns the graceful shutdown timeout.
func (c ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// StoreConfig selects and configures the job store backend.
type StoreConfig struct {
	Backend       string      `yaml:"backend" mapstructure:"backend"`
	SQLitePath    string      `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	BusyTimeoutMs int         `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
	Redis         RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig holds the Redis store configuration.
type RedisConfig struct {
	Addr        string `yaml:"addr" mapstructure:"addr"`
	PasswordEnv string `yaml:"password_env" mapstructure:"password_env"`
	DB          int    `yaml:"db" mapstructure:"db"`
	KeyPrefix   string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// ResolvePassword returns the Redis password from the configured environment variable.
func (c *RedisConfig) ResolvePassword() string {
	if c.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(c.PasswordEnv)
}

// ExportConfig holds defaults for structured exports.
type ExportConfig struct {
	Limit  int    `yaml:"limit" mapstructure:"limit"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ClientConfig holds settings for commands that talk to a running service.
type ClientConfig struct {
	URL     string `yaml:"url" mapstructure:"url"`
	Timeout int    `yaml:"timeout" mapstructure:"timeout"` // seconds
}

// TimeoutDuration returns the request timeout.
func (c ClientConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
