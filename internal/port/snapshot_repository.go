package port

import (
	"context"

	"limitguard/internal/domain"
)

// SnapshotRepository persists monthly limit snapshots keyed by (tenant, year, month).
type SnapshotRepository interface {
	// ReplaceYear writes all snapshots of one tenant/year atomically. When a
	// computation newer than the given snapshots is already stored it writes
	// nothing and returns domain.ErrConflictIgnored.
	ReplaceYear(ctx context.Context, tenantID string, year int, snapshots []domain.MonthlySnapshot) error
	ListByYear(ctx context.Context, tenantID string, year int) ([]domain.MonthlySnapshot, error)
}
