package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"limitguard/internal/domain"
)

// MockSnapshotRepo is a mock implementation of port.SnapshotRepository.
type MockSnapshotRepo struct {
	mock.Mock
}

func (m *MockSnapshotRepo) ReplaceYear(ctx context.Context, tenantID string, year int, snapshots []domain.MonthlySnapshot) error {
	args := m.Called(ctx, tenantID, year, snapshots)
	return args.Error(0)
}

func (m *MockSnapshotRepo) ListByYear(ctx context.Context, tenantID string, year int) ([]domain.MonthlySnapshot, error) {
	args := m.Called(ctx, tenantID, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MonthlySnapshot), args.Error(1)
}
