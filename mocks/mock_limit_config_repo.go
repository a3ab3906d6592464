package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"limitguard/internal/domain"
)

// MockLimitConfigRepo is a mock implementation of port.LimitConfigRepository.
type MockLimitConfigRepo struct {
	mock.Mock
}

func (m *MockLimitConfigRepo) GetByYear(ctx context.Context, year int) (*domain.LimitConfig, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LimitConfig), args.Error(1)
}

func (m *MockLimitConfigRepo) Upsert(ctx context.Context, cfg *domain.LimitConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}
