package memory

import (
	"context"
	"fmt"

	"limitguard/internal/domain"
)

// LimitConfigRepo implements port.LimitConfigRepository.
type LimitConfigRepo struct {
	s *Store
}

func (r *LimitConfigRepo) GetByYear(_ context.Context, year int) (*domain.LimitConfig, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	cfg, ok := r.s.configs[year]
	if !ok {
		return nil, fmt.Errorf("%w: year %d", domain.ErrLimitConfigNotFound, year)
	}
	return &cfg, nil
}

func (r *LimitConfigRepo) Upsert(_ context.Context, cfg *domain.LimitConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.configs[cfg.Year] = *cfg
	return nil
}
