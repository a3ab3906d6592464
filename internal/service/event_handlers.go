package service

import (
	"context"
	"fmt"

	"limitguard/internal/domain"
	"limitguard/internal/events"
)

// RegisterEventHandlers subscribes the services to the events they consume.
// alerts may be nil when no notifier is configured.
func RegisterEventHandlers(d *events.Dispatcher, limits LimitsService, alerts AlertService) {
	d.Register(domain.EventFieldsUpdated, func(ctx context.Context, event domain.Event) error {
		e, ok := event.(domain.FieldsUpdated)
		if !ok {
			return fmt.Errorf("%w: %T", domain.ErrUnknownEvent, event)
		}
		return limits.OnFieldsUpdated(ctx, e)
	})
	if alerts == nil {
		return
	}
	d.Register(domain.EventLimitsRecalculated, func(ctx context.Context, event domain.Event) error {
		e, ok := event.(domain.LimitsRecalculated)
		if !ok {
			return fmt.Errorf("%w: %T", domain.ErrUnknownEvent, event)
		}
		return alerts.OnLimitsRecalculated(ctx, e)
	})
}
