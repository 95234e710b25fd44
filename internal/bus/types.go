package bus

import (
	"context"

	"beacon/pkg/models"
)

// Envelope is the typed payload fanned out to sibling client instances:
// the normalized record plus the publisher's hydration phase. Origin
// identifies the publishing instance so a subscriber can ignore its own
// broadcasts.
type Envelope struct {
	Origin    string                    `json:"origin"`
	Hydrating bool                      `json:"hydrating"`
	Record    models.NotificationRecord `json:"record"`
}

type HandlerFunc func(ctx context.Context, env Envelope)

// Bus is the cross-instance broadcast channel: fire-and-forget, no
// acknowledgement, no backpressure. Which transport backs it (in-process
// hub, Redis pub/sub) is a deployment decision.
type Bus interface {
	Publish(ctx context.Context, env Envelope) error
	Subscribe(ctx context.Context, handler HandlerFunc) error
	Close() error
}
