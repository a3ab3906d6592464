package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"limitguard/internal/domain"
	"limitguard/internal/export"
	"limitguard/internal/service"
)

// MockExportService is a mock implementation of service.ExportService.
type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) WriteDashboard(ctx context.Context, w io.Writer, tenantID string, year int, format export.Format) (*domain.Dashboard, error) {
	args := m.Called(ctx, w, tenantID, year, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dashboard), args.Error(1)
}

func (m *MockExportService) PublishDashboard(ctx context.Context, tenantID string, year int, format export.Format) (*service.ExportResult, error) {
	args := m.Called(ctx, tenantID, year, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExportResult), args.Error(1)
}
