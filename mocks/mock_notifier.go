package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"limitguard/internal/domain"
)

// MockNotifier is a mock implementation of port.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyLimitState(ctx context.Context, alert domain.LimitAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}
