package port

import (
	"context"

	"limitguard/internal/domain"
)

// DocumentAuditRepository defines the contract for the append-only document audit log.
type DocumentAuditRepository interface {
	Append(ctx context.Context, rec *domain.AuditRecord) error
	ListByDocument(ctx context.Context, tenantID, documentID string, offset, limit int) ([]domain.AuditRecord, int, error)
}
