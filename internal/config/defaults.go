package config

import "github.com/spf13/viper"

// Default configuration values.
const (
	DefaultLogLevel      = "info"
	DefaultLogFile       = "~/.config/batchmon/batchmon.log"
	DefaultLogMaxSizeMB  = 50
	DefaultLogMaxBackups = 5
	DefaultLogMaxAgeDays = 28

	// Server configuration defaults.
	DefaultServerBind            = "127.0.0.1"
	DefaultServerPort            = 8000
	DefaultServerShutdownTimeout = 30 // seconds
	DefaultServerRateLimit       = 0  // disabled
	DefaultServerRateBurst       = 50

	// Store configuration defaults.
	DefaultStoreBackend        = "sqlite"
	DefaultStoreSQLitePath     = "~/.config/batchmon/jobs.db"
	DefaultStoreBusyTimeoutMs  = 5000
	DefaultStoreRedisAddr      = "localhost:6379"
	DefaultStoreRedisPassEnv   = "BATCHMON_REDIS_PASSWORD"
	DefaultStoreRedisDB        = 0
	DefaultStoreRedisKeyPrefix = "batchmon:"

	// Export configuration defaults.
	DefaultExportLimit  = 1000
	DefaultExportFormat = "json"

	// Client configuration defaults.
	DefaultClientURL     = "http://127.0.0.1:8000"
	DefaultClientTimeout = 10 // seconds
)

// NewDefaultConfig returns a Config populated with default values.
func NewDefaultConfig() Config {
	return Config{
		LogLevel:      DefaultLogLevel,
		LogFile:       DefaultLogFile,
		LogMaxSizeMB:  DefaultLogMaxSizeMB,
		LogMaxBackups: DefaultLogMaxBackups,
		LogMaxAgeDays: DefaultLogMaxAgeDays,
		Server: ServerConfig{
			Bind:            DefaultServerBind,
			Port:            DefaultServerPort,
			ShutdownTimeout: DefaultServerShutdownTimeout,
			RateLimit:       DefaultServerRateLimit,
			RateBurst:       DefaultServerRateBurst,
		},
		Store: StoreConfig{
			Backend:       DefaultStoreBackend,
			SQLitePath:    DefaultStoreSQLitePath,
			BusyTimeoutMs: DefaultStoreBusyTimeoutMs,
			Redis: RedisConfig{
				Addr:        DefaultStoreRedisAddr,
				PasswordEnv: DefaultStoreRedisPassEnv,
				DB:          DefaultStoreRedisDB,
				KeyPrefix:   DefaultStoreRedisKeyPrefix,
			},
		},
		Export: ExportConfig{
			Limit:  DefaultExportLimit,
			Format: DefaultExportFormat,
		},
		Client: ClientConfig{
			URL:     DefaultClientURL,
			Timeout: DefaultClientTimeout,
		},
	}
}

// setDefaults registers all default configuration values with the global viper instance.
// Called during Init() before reading config files.
func setDefaults() {
	setViperDefaults(viper.GetViper())
}

// setViperDefaults registers all default configuration values with a viper instance.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", DefaultLogFile)
	v.SetDefault("log_max_size_mb", DefaultLogMaxSizeMB)
	v.SetDefault("log_max_backups", DefaultLogMaxBackups)
	v.SetDefault("log_max_age_days", DefaultLogMaxAgeDays)

	// Server defaults
	v.SetDefault("server.bind", DefaultServerBind)
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)
	v.SetDefault("server.rate_limit", DefaultServerRateLimit)
	v.SetDefault("server.rate_burst", DefaultServerRateBurst)

	// Store defaults
	v.SetDefault("store.backend", DefaultStoreBackend)
	v.SetDefault("store.sqlite_path", DefaultStoreSQLitePath)
	v.SetDefault("store.busy_timeout_ms", DefaultStoreBusyTimeoutMs)
	v.SetDefault("store.redis.addr", DefaultStoreRedisAddr)
	v.SetDefault("store.redis.password_env", DefaultStoreRedisPassEnv)
	v.SetDefault("store.redis.db", DefaultStoreRedisDB)
	v.SetDefault("store.redis.key_prefix", DefaultStoreRedisKeyPrefix)

	// Export defaults
	v.SetDefault("export.limit", DefaultExportLimit)
	v.SetDefault("export.format", DefaultExportFormat)

	// Client defaults
	v.SetDefault("client.url", DefaultClientURL)
	v.SetDefault("client.timeout", DefaultClientTimeout)
}
