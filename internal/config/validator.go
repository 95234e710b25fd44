package config

import (
	"fmt"
	"net/url"

	"beacon/internal/constants"
)

func applyDefaults(cfg *Config) {
	if cfg.Stream.InitialBackoff <= 0 {
		cfg.Stream.InitialBackoff = constants.DefaultInitialBackoff
	}
	if cfg.Stream.MaxBackoff <= 0 {
		cfg.Stream.MaxBackoff = constants.DefaultMaxBackoff
	}
	if cfg.Resolver.MinRefreshInterval <= 0 {
		cfg.Resolver.MinRefreshInterval = constants.MinSlugRefreshInterval
	}
	if cfg.Resolver.Timeout <= 0 {
		cfg.Resolver.Timeout = constants.DefaultHTTPTimeout
	}
	if cfg.Resolver.SlugMapURL == "" && cfg.Stream.BaseURL != "" {
		cfg.Resolver.SlugMapURL = cfg.Stream.BaseURL + constants.DefaultSlugMapPath
	}
	if cfg.Store.Cap <= 0 {
		cfg.Store.Cap = constants.DefaultStoreCap
	}
	if cfg.Bus.Type == "" {
		cfg.Bus.Type = constants.BusTypeMemory
	}
	if cfg.Bus.Channel == "" {
		cfg.Bus.Channel = constants.DefaultBusChannel
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func ValidateStatic(cfg *Config) error {
	if cfg.Stream.BaseURL == "" {
		return fmt.Errorf("stream.base_url is required")
	}
	if _, err := url.Parse(cfg.Stream.BaseURL); err != nil {
		return fmt.Errorf("stream.base_url is not a valid URL: %w", err)
	}
	if cfg.Stream.Token == "" {
		return fmt.Errorf("stream.token is required")
	}
	if cfg.Stream.MaxBackoff < cfg.Stream.InitialBackoff {
		return fmt.Errorf("stream.max_backoff must be >= stream.initial_backoff")
	}

	switch cfg.Bus.Type {
	case constants.BusTypeMemory:
	case constants.BusTypeRedis:
		if cfg.Bus.Redis.Host == "" {
			return fmt.Errorf("bus.redis.host is required for bus.type=redis")
		}
	default:
		return fmt.Errorf("unknown bus type: %s", cfg.Bus.Type)
	}

	return nil
}
