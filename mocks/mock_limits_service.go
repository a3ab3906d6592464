package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"limitguard/internal/domain"
	"limitguard/internal/service"
)

// MockLimitsService is a mock implementation of service.LimitsService.
type MockLimitsService struct {
	mock.Mock
}

func (m *MockLimitsService) RecalcLimits(ctx context.Context, tenantID string, year int, docIDs []string) (*domain.Dashboard, error) {
	args := m.Called(ctx, tenantID, year, docIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dashboard), args.Error(1)
}

func (m *MockLimitsService) OnFieldsUpdated(ctx context.Context, event domain.FieldsUpdated) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockLimitsService) Dashboard(ctx context.Context, tenantID string, year int) (*domain.Dashboard, error) {
	args := m.Called(ctx, tenantID, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dashboard), args.Error(1)
}

func (m *MockLimitsService) RecalcYear(ctx context.Context, year int) (*service.RecalcReport, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RecalcReport), args.Error(1)
}

func (m *MockLimitsService) SeedConfigs(ctx context.Context, configs []domain.LimitConfig) error {
	args := m.Called(ctx, configs)
	return args.Error(0)
}
