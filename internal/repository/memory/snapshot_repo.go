package memory

import (
	"context"
	"fmt"
	"sort"

	"limitguard/internal/domain"
)

// SnapshotRepo implements port.SnapshotRepository.
type SnapshotRepo struct {
	s *Store
}

func (r *SnapshotRepo) ReplaceYear(_ context.Context, tenantID string, year int, snapshots []domain.MonthlySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	computedAt := snapshots[0].ComputedAt

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, existing := range r.s.snapshots {
		if k.tenantID == tenantID && k.year == year && existing.ComputedAt.After(computedAt) {
			return fmt.Errorf("%w: tenant %s year %d computed at %s", domain.ErrConflictIgnored,
				tenantID, year, existing.ComputedAt)
		}
	}
	for k := range r.s.snapshots {
		if k.tenantID == tenantID && k.year == year {
			delete(r.s.snapshots, k)
		}
	}
	for _, snap := range snapshots {
		r.s.snapshots[snapKey{tenantID, year, snap.Month}] = snap
	}
	return nil
}

func (r *SnapshotRepo) ListByYear(_ context.Context, tenantID string, year int) ([]domain.MonthlySnapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.MonthlySnapshot, 0, 12)
	for k, snap := range r.s.snapshots {
		if k.tenantID == tenantID && k.year == year {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}
