package memory

import (
	"context"
	"fmt"

	"limitguard/internal/domain"
)

// AuditRepo implements port.DocumentAuditRepository.
type AuditRepo struct {
	s *Store
}

func (r *AuditRepo) Append(_ context.Context, rec *domain.AuditRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.auditFailure != nil {
		return fmt.Errorf("memory.AuditRepo.Append: %w", r.s.auditFailure)
	}
	r.s.audit = append(r.s.audit, cloneAudit(rec))
	return nil
}

func (r *AuditRepo) ListByDocument(_ context.Context, tenantID, documentID string, offset, limit int) ([]domain.AuditRecord, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var matched []domain.AuditRecord
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		rec := r.s.audit[i]
		if rec.TenantID == tenantID && rec.DocumentID == documentID {
			matched = append(matched, rec)
		}
	}
	total := len(matched)
	if offset >= total {
		return []domain.AuditRecord{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

// Len returns the number of audit records stored.
func (r *AuditRepo) Len() int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.audit)
}

func cloneAudit(rec *domain.AuditRecord) domain.AuditRecord {
	out := *rec
	out.OldValue = rec.OldValue.Clone()
	out.NewValue = rec.NewValue.Clone()
	return out
}
