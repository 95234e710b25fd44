package constants

import "time"

const (
	DefaultHTTPTimeout = 10 * time.Second
)

// Reconnect backoff for the delivery channel.
const (
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 8 * time.Second
	BackoffMultiplier     = 2.0
)

const (
	// DefaultStoreCap bounds the in-memory notification list.
	DefaultStoreCap = 100
)

const (
	DefaultBusChannel = "beacon:notifications"
)

const (
	DefaultStreamPath      = "/api/notifications/stream"
	DefaultUnreadCountPath = "/api/notifications/unread-count"
	DefaultSlugMapPath     = "/api/campaigns/slugs"
)

const (
	// CampaignPathPrefix is the site-relative base for resolved hrefs.
	CampaignPathPrefix = "/campaigns/"
)

const (
	// MinSlugRefreshInterval spaces out slug-map refreshes so a burst of
	// unresolvable notifications triggers at most one fetch per interval.
	MinSlugRefreshInterval = 5 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	SignalBufferSize = 64
)

const (
	BusTypeMemory = "memory"
	BusTypeRedis  = "redis"
)
