package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Stream         StreamConfig
	Resolver       ResolverConfig
	Store          StoreConfig
	Bus            BusConfig
	Logging        LoggingConfig
	CircuitBreaker CircuitBreakerConfig
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// StreamConfig describes the delivery channel: where the push endpoint
// lives, the bearer credential, and the reconnect backoff envelope.
type StreamConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Token          string        `mapstructure:"token"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

type ResolverConfig struct {
	SlugMapURL         string        `mapstructure:"slug_map_url"`
	MinRefreshInterval time.Duration `mapstructure:"min_refresh_interval"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

type StoreConfig struct {
	Cap int `mapstructure:"cap"`
}

type BusConfig struct {
	Type    string      `mapstructure:"type"`
	Channel string      `mapstructure:"channel"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
