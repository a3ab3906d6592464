package memory

import (
	"context"
	"fmt"

	"limitguard/internal/domain"
	"limitguard/internal/port"
)

// UnitOfWork implements port.UnitOfWork by staging writes and applying them
// to the store only when fn succeeds.
type UnitOfWork struct {
	s *Store
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos port.TxRepositories) error) error {
	u.s.txMu.Lock()
	defer u.s.txMu.Unlock()

	tx := &memTx{s: u.s, docs: make(map[docKey]*domain.Document)}
	if err := fn(ctx, port.TxRepositories{
		Documents: &txDocumentRepo{tx: tx},
		Audit:     &txAuditRepo{tx: tx},
	}); err != nil {
		return err
	}

	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for k, doc := range tx.docs {
		u.s.docs[k] = doc
	}
	u.s.audit = append(u.s.audit, tx.audit...)
	return nil
}

type memTx struct {
	s     *Store
	docs  map[docKey]*domain.Document
	audit []domain.AuditRecord
}

type txDocumentRepo struct {
	tx *memTx
}

func (r *txDocumentRepo) GetByID(ctx context.Context, tenantID, docID string) (*domain.Document, error) {
	if doc, ok := r.tx.docs[docKey{tenantID, docID}]; ok {
		return doc.Clone(), nil
	}
	return r.tx.s.Documents().GetByID(ctx, tenantID, docID)
}

func (r *txDocumentRepo) Find(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	r.tx.s.mu.RLock()
	merged := make(map[docKey]*domain.Document, len(r.tx.s.docs)+len(r.tx.docs))
	for k, v := range r.tx.s.docs {
		merged[k] = v
	}
	r.tx.s.mu.RUnlock()
	for k, v := range r.tx.docs {
		merged[k] = v
	}
	return findLocked(merged, filter), nil
}

func (r *txDocumentRepo) Put(_ context.Context, doc *domain.Document) error {
	r.tx.docs[docKey{doc.TenantID, doc.ID}] = doc.Clone()
	return nil
}

func (r *txDocumentRepo) ListTenantsWithDocuments(ctx context.Context, year int) ([]string, error) {
	return r.tx.s.Documents().ListTenantsWithDocuments(ctx, year)
}

type txAuditRepo struct {
	tx *memTx
}

func (r *txAuditRepo) Append(_ context.Context, rec *domain.AuditRecord) error {
	r.tx.s.mu.RLock()
	failure := r.tx.s.auditFailure
	r.tx.s.mu.RUnlock()
	if failure != nil {
		return fmt.Errorf("memory.AuditRepo.Append: %w", failure)
	}
	r.tx.audit = append(r.tx.audit, cloneAudit(rec))
	return nil
}

func (r *txAuditRepo) ListByDocument(ctx context.Context, tenantID, documentID string, offset, limit int) ([]domain.AuditRecord, int, error) {
	return r.tx.s.Audit().ListByDocument(ctx, tenantID, documentID, offset, limit)
}
