// Package limits holds the pure compliance arithmetic: monthly accumulation,
// run-rate forecasting, and the four-state threshold classification.
package limits

import (
	"github.com/shopspring/decimal"

	"limitguard/internal/domain"
)

// ComputeState classifies ratio against the warn and critical thresholds.
// The partition is strict: equality with critical is AT_LIMIT and nothing else.
func ComputeState(ratio, warn, critical decimal.Decimal) domain.DashboardState {
	switch {
	case ratio.GreaterThan(critical):
		return domain.StateExceeded
	case ratio.Equal(critical):
		return domain.StateAtLimit
	case ratio.GreaterThanOrEqual(warn):
		return domain.StateNearLimit
	default:
		return domain.StateOK
	}
}

// Ratio returns amount / annualLimit, or zero when the limit is disabled.
func Ratio(amount decimal.Decimal, cfg *domain.LimitConfig) decimal.Decimal {
	if cfg.Disabled() {
		return decimal.Zero
	}
	return amount.Div(cfg.AnnualLimit)
}

// Classify returns the state of amount against cfg. Thresholds are scaled to
// absolute amounts so boundary comparisons stay exact for any limit.
func Classify(amount decimal.Decimal, cfg *domain.LimitConfig) domain.DashboardState {
	if cfg.Disabled() {
		return ComputeState(decimal.Zero, cfg.WarnRatio, cfg.CriticalRatio)
	}
	return ComputeState(amount, cfg.WarnRatio.Mul(cfg.AnnualLimit), cfg.CriticalRatio.Mul(cfg.AnnualLimit))
}
