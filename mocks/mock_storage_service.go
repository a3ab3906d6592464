package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"limitguard/internal/service"
)

// MockStorageService is a mock implementation of service.StorageService.
type MockStorageService struct {
	mock.Mock
}

func (m *MockStorageService) PresignUpload(ctx context.Context, input service.PresignUploadInput) (*service.PresignedUpload, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PresignedUpload), args.Error(1)
}
