package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("stream.base_url", "STREAM_BASE_URL")
	viper.BindEnv("stream.token", "STREAM_TOKEN")
	viper.BindEnv("stream.initial_backoff", "STREAM_INITIAL_BACKOFF")
	viper.BindEnv("stream.max_backoff", "STREAM_MAX_BACKOFF")

	viper.BindEnv("resolver.slug_map_url", "RESOLVER_SLUG_MAP_URL")
	viper.BindEnv("resolver.min_refresh_interval", "RESOLVER_MIN_REFRESH_INTERVAL")
	viper.BindEnv("resolver.timeout", "RESOLVER_TIMEOUT")

	viper.BindEnv("store.cap", "STORE_CAP")

	viper.BindEnv("bus.type", "BUS_TYPE")
	viper.BindEnv("bus.channel", "BUS_CHANNEL")
	viper.BindEnv("bus.redis.host", "BUS_REDIS_HOST")
	viper.BindEnv("bus.redis.port", "BUS_REDIS_PORT")
	viper.BindEnv("bus.redis.password", "BUS_REDIS_PASSWORD")
	viper.BindEnv("bus.redis.db", "BUS_REDIS_DB")

	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")
}
