package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_DefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.NoError(t, Validate(&cfg))
}

func TestValidate_InvalidFields(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		mutate func(*Config)
	}{
		{"bad log level", "log_level", func(c *Config) { c.LogLevel = "loud" }},
		{"zero log size", "log_max_size_mb", func(c *Config) { c.LogMaxSizeMB = 0 }},
		{"zero port", "server.port", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", "server.port", func(c *Config) { c.Server.Port = 65536 }},
		{"empty bind", "server.bind", func(c *Config) { c.Server.Bind = "" }},
		{"zero shutdown", "server.shutdown_timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }},
		{"negative rate", "server.rate_limit", func(c *Config) { c.Server.RateLimit = -1 }},
		{"rate without burst", "server.rate_burst", func(c *Config) {
			c.Server.RateLimit = 10
			c.Server.RateBurst = 0
		}},
		{"unknown backend", "store.backend", func(c *Config) { c.Store.Backend = "mysql" }},
		{"empty sqlite path", "store.sqlite_path", func(c *Config) { c.Store.SQLitePath = "" }},
		{"empty redis addr", "store.redis.addr", func(c *Config) {
			c.Store.Backend = "redis"
			c.Store.Redis.Addr = ""
		}},
		{"zero export limit", "export.limit", func(c *Config) { c.Export.Limit = 0 }},
		{"unknown export format", "export.format", func(c *Config) { c.Export.Format = "csv" }},
		{"bad client url", "client.url", func(c *Config) { c.Client.URL = "localhost:8000" }},
		{"zero client timeout", "client.timeout", func(c *Config) { c.Client.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(&cfg)

			err := Validate(&cfg)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))

			var ves ValidationErrors
			require.ErrorAs(t, err, &ves)
			require.Len(t, ves, 1)
			assert.Equal(t, tt.field, ves[0].Field)
		})
	}
}

func TestValidate_RedisBackendIgnoresSQLitePath(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.Backend = "redis"
	cfg.Store.SQLitePath = ""
	assert.NoError(t, Validate(&cfg))
}

func TestValidationErrors_Error(t *testing.T) {
	single := ValidationErrors{{Field: "a", Message: "bad"}}
	assert.Equal(t, "a: bad", single.Error())

	multi := ValidationErrors{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}
	assert.Contains(t, multi.Error(), "config validation failed:")
	assert.Contains(t, multi.Error(), "  - b: worse")

	assert.Empty(t, ValidationErrors{}.Error())
}
