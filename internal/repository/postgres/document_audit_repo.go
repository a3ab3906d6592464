package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"limitguard/internal/domain"
	"limitguard/internal/port"
)

type documentAuditRepo struct {
	db sqlx.ExtContext
}

// NewDocumentAuditRepo creates a new PostgreSQL-backed DocumentAuditRepository.
func NewDocumentAuditRepo(db *sqlx.DB) port.DocumentAuditRepository {
	return &documentAuditRepo{db: db}
}

func (r *documentAuditRepo) Append(ctx context.Context, rec *domain.AuditRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO document_audit_log
			(id, tenant_id, document_id, action, path, old_value, new_value, source, actor_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.TenantID, rec.DocumentID, rec.Action, rec.Path,
		rec.OldValue, rec.NewValue, rec.Source, rec.ActorID, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("documentAuditRepo.Append: %w", err)
	}
	return nil
}

func (r *documentAuditRepo) ListByDocument(ctx context.Context, tenantID, documentID string, offset, limit int) ([]domain.AuditRecord, int, error) {
	var total int
	err := sqlx.GetContext(ctx, r.db, &total,
		`SELECT COUNT(*) FROM document_audit_log WHERE tenant_id = $1 AND document_id = $2`,
		tenantID, documentID)
	if err != nil {
		return nil, 0, fmt.Errorf("documentAuditRepo.ListByDocument count: %w", err)
	}

	records := []domain.AuditRecord{}
	err = sqlx.SelectContext(ctx, r.db, &records,
		`SELECT id, tenant_id, document_id, action, path, old_value, new_value, source, actor_id, created_at
		 FROM document_audit_log
		 WHERE tenant_id = $1 AND document_id = $2
		 ORDER BY created_at DESC, seq DESC
		 LIMIT $3 OFFSET $4`,
		tenantID, documentID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("documentAuditRepo.ListByDocument: %w", err)
	}
	return records, total, nil
}
