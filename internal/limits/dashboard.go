package limits

import (
	"fmt"
	"sort"
	"time"

	"limitguard/internal/domain"
)

// DashboardMonth picks the month a dashboard reports for year: the current
// month while the year is in progress, otherwise December.
func DashboardMonth(year int, now time.Time) int {
	if now.Year() == year {
		return int(now.Month())
	}
	return MonthsPerYear
}

// BuildDashboard assembles the dashboard view from a persisted snapshot set.
func BuildDashboard(tenantID string, year int, snapshots []domain.MonthlySnapshot, now time.Time) (*domain.Dashboard, error) {
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("%w: tenant %s year %d", domain.ErrSnapshotsNotFound, tenantID, year)
	}
	sorted := make([]domain.MonthlySnapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Month < sorted[j].Month })

	want := DashboardMonth(year, now)
	current := sorted[0]
	for _, s := range sorted {
		if s.Month > want {
			break
		}
		current = s
	}

	return &domain.Dashboard{
		TenantID:    tenantID,
		Year:        year,
		Month:       current.Month,
		State:       current.State,
		Accumulated: current.Accumulated,
		Forecast:    current.Forecast,
		ComputedAt:  current.ComputedAt,
		Snapshots:   sorted,
	}, nil
}
