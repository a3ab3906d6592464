package port

import (
	"context"

	"limitguard/internal/domain"
)

// EventPublisher announces events on the event channel. Delivery is
// at-least-once and best-effort; handlers must be idempotent.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
