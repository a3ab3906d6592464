package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"limitguard/internal/domain"
	"limitguard/internal/port"
)

type snapshotRepo struct {
	db *sqlx.DB
}

// NewSnapshotRepo creates a new PostgreSQL-backed SnapshotRepository.
func NewSnapshotRepo(db *sqlx.DB) port.SnapshotRepository {
	return &snapshotRepo{db: db}
}

// ReplaceYear upserts all months in one statement. A row whose stored
// computed_at is newer is left alone; if any row is skipped the whole
// statement is rolled back and ErrConflictIgnored is returned.
func (r *snapshotRepo) ReplaceYear(ctx context.Context, tenantID string, year int, snapshots []domain.MonthlySnapshot) (err error) {
	if len(snapshots) == 0 {
		return nil
	}

	values := make([]string, 0, len(snapshots))
	args := make([]interface{}, 0, len(snapshots)*7)
	for i, s := range snapshots {
		n := i * 7
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6, n+7))
		args = append(args, tenantID, year, s.Month, s.Accumulated, s.Forecast, s.State, s.ComputedAt)
	}
	query := `INSERT INTO monthly_snapshots (tenant_id, year, month, accumulated, forecast, state, computed_at)
		VALUES ` + strings.Join(values, ", ") + `
		ON CONFLICT (tenant_id, year, month) DO UPDATE SET
			accumulated = EXCLUDED.accumulated,
			forecast = EXCLUDED.forecast,
			state = EXCLUDED.state,
			computed_at = EXCLUDED.computed_at
		WHERE monthly_snapshots.computed_at <= EXCLUDED.computed_at`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("snapshotRepo.ReplaceYear begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("snapshotRepo.ReplaceYear: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("snapshotRepo.ReplaceYear rows: %w", err)
	}
	if int(affected) < len(snapshots) {
		return fmt.Errorf("%w: tenant %s year %d", domain.ErrConflictIgnored, tenantID, year)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("snapshotRepo.ReplaceYear commit: %w", err)
	}
	return nil
}

func (r *snapshotRepo) ListByYear(ctx context.Context, tenantID string, year int) ([]domain.MonthlySnapshot, error) {
	snaps := []domain.MonthlySnapshot{}
	err := r.db.SelectContext(ctx, &snaps,
		`SELECT tenant_id, year, month, accumulated, forecast, state, computed_at
		 FROM monthly_snapshots
		 WHERE tenant_id = $1 AND year = $2
		 ORDER BY month`, tenantID, year)
	if err != nil {
		return nil, fmt.Errorf("snapshotRepo.ListByYear: %w", err)
	}
	return snaps, nil
}
