package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"limitguard/internal/port"
)

// MockLocker is a mock implementation of port.Locker.
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (port.Lock, error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(port.Lock), args.Error(1)
}

// MockLock is a mock implementation of port.Lock.
type MockLock struct {
	mock.Mock
}

func (m *MockLock) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
