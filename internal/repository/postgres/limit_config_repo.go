package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"limitguard/internal/domain"
	"limitguard/internal/port"
)

type limitConfigRepo struct {
	db *sqlx.DB
}

// NewLimitConfigRepo creates a new PostgreSQL-backed LimitConfigRepository.
func NewLimitConfigRepo(db *sqlx.DB) port.LimitConfigRepository {
	return &limitConfigRepo{db: db}
}

func (r *limitConfigRepo) GetByYear(ctx context.Context, year int) (*domain.LimitConfig, error) {
	var cfg domain.LimitConfig
	err := r.db.GetContext(ctx, &cfg,
		`SELECT year, annual_limit, warn_ratio, critical_ratio, updated_at
		 FROM limit_configs WHERE year = $1`, year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: year %d", domain.ErrLimitConfigNotFound, year)
		}
		return nil, fmt.Errorf("limitConfigRepo.GetByYear: %w", err)
	}
	return &cfg, nil
}

func (r *limitConfigRepo) Upsert(ctx context.Context, cfg *domain.LimitConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO limit_configs (year, annual_limit, warn_ratio, critical_ratio, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (year) DO UPDATE SET
			annual_limit = EXCLUDED.annual_limit,
			warn_ratio = EXCLUDED.warn_ratio,
			critical_ratio = EXCLUDED.critical_ratio,
			updated_at = EXCLUDED.updated_at`,
		cfg.Year, cfg.AnnualLimit, cfg.WarnRatio, cfg.CriticalRatio, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("limitConfigRepo.Upsert: %w", err)
	}
	return nil
}
