// Package config provides configuration loading, defaults, and validation for
// the NLP inference service.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all service settings.
const envPrefix = "NLP"

// envAliases maps config keys to the unprefixed variable names used by the
// existing container deployments.  The prefixed form always wins.
var envAliases = map[string]string{
	"redis.host":          "REDIS_HOST",
	"redis.port":          "REDIS_PORT",
	"history.limit":       "HISTORY_LIMIT",
	"auth.api_key":        "API_KEY",
	"metric_sink.api_key": "WANDB_API_KEY",
}

// newViper builds a pre-configured Viper instance with the service's standard
// settings: YAML file type, NLP_ env prefix, automatic env binding, and a key
// replacer that maps "." → "_" so that nested keys like "redis.host" resolve
// to "NLP_REDIS_HOST".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, val := range defaultValues {
		v.SetDefault(key, val)
	}
	for key, alias := range envAliases {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		// BindEnv only errors when called without a key.
		_ = v.BindEnv(key, prefixed, alias)
	}
	return v
}

// Load reads the YAML file at configPath, merges any environment variable
// overrides, applies defaults for unset fields, and validates the result.
// An empty configPath is equivalent to LoadFromEnv.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}

	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from environment variables, with no
// config file required.  This is the preferred loading strategy for
// containerised (12-factor) deployments.
//
// Environment variable naming convention:
//
//	NLP_<SECTION>_<FIELD>   e.g.  NLP_REDIS_HOST, NLP_HISTORY_LIMIT
//
// REDIS_HOST, REDIS_PORT, HISTORY_LIMIT, API_KEY and WANDB_API_KEY are also
// honoured.
func LoadFromEnv() (*Config, error) {
	v := newViper()
	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// It is intended for use in main() where a config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
