package limits

import (
	"time"

	"github.com/shopspring/decimal"

	"limitguard/internal/domain"
)

// MonthsPerYear is the number of snapshots written by every recalculation.
const MonthsPerYear = 12

// BuildSnapshots produces the full 12-month snapshot set for a tenant/year.
// Each month is classified on max(cumulative, forecast), so a high forecast
// raises early months before actual usage does.
func BuildSnapshots(tenantID string, year int, s Summary, cfg *domain.LimitConfig, computedAt time.Time) []domain.MonthlySnapshot {
	out := make([]domain.MonthlySnapshot, 0, MonthsPerYear)
	cumulative := decimal.Zero
	for month := 1; month <= MonthsPerYear; month++ {
		if v, ok := s.MonthlyTotals[month]; ok {
			cumulative = cumulative.Add(v)
		}
		out = append(out, domain.MonthlySnapshot{
			TenantID:    tenantID,
			Year:        year,
			Month:       month,
			Accumulated: cumulative,
			Forecast:    s.Forecast,
			State:       Classify(decimal.Max(cumulative, s.Forecast), cfg),
			ComputedAt:  computedAt,
		})
	}
	return out
}

// TerminalState is the state of the last month of the set.
func TerminalState(snapshots []domain.MonthlySnapshot) domain.DashboardState {
	if len(snapshots) == 0 {
		return domain.StateOK
	}
	return snapshots[len(snapshots)-1].State
}
