package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"limitguard/internal/domain"
)

// MockDocumentAuditRepo is a mock implementation of port.DocumentAuditRepository.
type MockDocumentAuditRepo struct {
	mock.Mock
}

func (m *MockDocumentAuditRepo) Append(ctx context.Context, rec *domain.AuditRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockDocumentAuditRepo) ListByDocument(ctx context.Context, tenantID, documentID string, offset, limit int) ([]domain.AuditRecord, int, error) {
	args := m.Called(ctx, tenantID, documentID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.AuditRecord), args.Int(1), args.Error(2)
}
