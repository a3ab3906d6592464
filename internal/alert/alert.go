// Package alert delivers limit alerts through the configured channels.
package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"limitguard/internal/domain"
	"limitguard/internal/port"
)

// Subject returns the one-line summary used by every channel.
func Subject(a domain.LimitAlert) string {
	return fmt.Sprintf("[%s] tenant %s is %s for %d", a.State, a.TenantID, describe(a.State), a.Year)
}

// Body returns the plain-text alert body.
func Body(a domain.LimitAlert) string {
	return fmt.Sprintf("Tenant: %s\nYear: %d\nState: %s\nAccumulated: %s\nForecast: %s\n",
		a.TenantID, a.Year, a.State, a.Accumulated.StringFixed(2), a.Forecast.StringFixed(2))
}

func describe(s domain.DashboardState) string {
	switch s {
	case domain.StateNearLimit:
		return "approaching its annual limit"
	case domain.StateAtLimit:
		return "at its annual limit"
	case domain.StateExceeded:
		return "over its annual limit"
	default:
		return "within its annual limit"
	}
}

// LogNotifier writes alerts to the log.
type LogNotifier struct {
	log logrus.FieldLogger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyLimitState(_ context.Context, a domain.LimitAlert) error {
	n.log.WithFields(logrus.Fields{
		"tenant_id":   a.TenantID,
		"year":        a.Year,
		"state":       a.State,
		"accumulated": a.Accumulated.String(),
		"forecast":    a.Forecast.String(),
	}).Warn(Subject(a))
	return nil
}

// MultiNotifier fans an alert out to several notifiers. Every notifier is
// tried; failures are joined.
type MultiNotifier []port.Notifier

func (m MultiNotifier) NotifyLimitState(ctx context.Context, a domain.LimitAlert) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyLimitState(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
