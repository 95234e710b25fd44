package bus

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"beacon/internal/config"
	"beacon/internal/constants"
	"beacon/internal/logger"
)

// New builds the bus transport named by the configuration. The memory
// transport is a single-process hub; the redis transport synchronizes
// instances across processes and hosts.
func New(cfg config.BusConfig, rdb *redis.Client, log logger.Logger) (Bus, error) {
	switch cfg.Type {
	case constants.BusTypeMemory:
		return NewMemoryHub().NewBus(log), nil
	case constants.BusTypeRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis client is required for bus type %q", cfg.Type)
		}
		return NewRedisBus(rdb, cfg.Channel, log), nil
	default:
		return nil, fmt.Errorf("unknown bus type: %s", cfg.Type)
	}
}
