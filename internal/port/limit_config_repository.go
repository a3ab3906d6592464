package port

import (
	"context"

	"limitguard/internal/domain"
)

// LimitConfigRepository supplies per-year limit thresholds.
type LimitConfigRepository interface {
	// GetByYear returns domain.ErrLimitConfigNotFound when no thresholds exist for year.
	GetByYear(ctx context.Context, year int) (*domain.LimitConfig, error)
	Upsert(ctx context.Context, cfg *domain.LimitConfig) error
}
