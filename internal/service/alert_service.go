package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"limitguard/internal/domain"
	"limitguard/internal/port"
)

// AlertService notifies tenants when a recalculation lands in an alerting state.
type AlertService interface {
	OnLimitsRecalculated(ctx context.Context, event domain.LimitsRecalculated) error
}

type alertKey struct {
	tenantID string
	year     int
}

type alertService struct {
	notifier port.Notifier
	log      logrus.FieldLogger

	mu   sync.Mutex
	last map[alertKey]domain.DashboardState
}

// NewAlertService creates a new AlertService implementation.
func NewAlertService(notifier port.Notifier, log logrus.FieldLogger) AlertService {
	return &alertService{
		notifier: notifier,
		log:      log.WithField("component", "alert_service"),
		last:     make(map[alertKey]domain.DashboardState),
	}
}

// OnLimitsRecalculated sends one alert per state change. Repeated events in
// the same state are dropped, and returning to OK re-arms the alert.
func (s *alertService) OnLimitsRecalculated(ctx context.Context, event domain.LimitsRecalculated) error {
	key := alertKey{tenantID: event.TenantID, year: event.Year}

	s.mu.Lock()
	prev, seen := s.last[key]
	if seen && prev == event.State {
		s.mu.Unlock()
		return nil
	}
	s.last[key] = event.State
	s.mu.Unlock()

	if !event.State.Alerting() {
		return nil
	}

	alert := domain.LimitAlert{
		TenantID:    event.TenantID,
		Year:        event.Year,
		State:       event.State,
		Accumulated: event.Accumulated,
		Forecast:    event.Forecast,
	}
	if err := s.notifier.NotifyLimitState(ctx, alert); err != nil {
		// Forget the state so a retry of this event notifies again.
		s.mu.Lock()
		if seen {
			s.last[key] = prev
		} else {
			delete(s.last, key)
		}
		s.mu.Unlock()
		return fmt.Errorf("alert.OnLimitsRecalculated: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"tenant_id": event.TenantID,
		"year":      event.Year,
		"state":     event.State,
	}).Info("limit alert sent")
	return nil
}
