package port

import (
	"context"

	"limitguard/internal/domain"
)

// Notifier delivers limit alerts to a tenant's contacts.
type Notifier interface {
	NotifyLimitState(ctx context.Context, alert domain.LimitAlert) error
}
