package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadFromPath reads configuration from a specific file path without touching
// the global configuration.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	// Drafts and backups carry no .yaml suffix
	v.SetConfigFile(expandHome(path))
	v.SetConfigType("yaml")

	// Same env overrides as the global config
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys missing from the file fall back to defaults
	setViperDefaults(v)

	err := v.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to read config from %s; %w", path, err)
	}

	return unmarshalConfig(v)
}

// unmarshalConfig converts viper config to typed Config struct.
func unmarshalConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	err := v.Unmarshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config; %w", err)
	}

	// Returned unwrapped so callers can print each ValidationError
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
