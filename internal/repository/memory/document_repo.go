package memory

import (
	"context"
	"fmt"
	"sort"

	"limitguard/internal/domain"
)

// DocumentRepo implements port.DocumentRepository.
type DocumentRepo struct {
	s *Store
}

func (r *DocumentRepo) GetByID(_ context.Context, tenantID, docID string) (*domain.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	doc, ok := r.s.docs[docKey{tenantID, docID}]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, docID)
	}
	return doc.Clone(), nil
}

func (r *DocumentRepo) Find(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return findLocked(r.s.docs, filter), nil
}

func (r *DocumentRepo) Put(_ context.Context, doc *domain.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.docs[docKey{doc.TenantID, doc.ID}] = doc.Clone()
	return nil
}

func (r *DocumentRepo) ListTenantsWithDocuments(_ context.Context, year int) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, doc := range r.s.docs {
		if t, ok := doc.IssueTime(); ok && t.Year() == year {
			seen[doc.TenantID] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for tenantID := range seen {
		out = append(out, tenantID)
	}
	sort.Strings(out)
	return out, nil
}

func findLocked(docs map[docKey]*domain.Document, filter domain.DocumentFilter) []domain.Document {
	var ids map[string]struct{}
	if len(filter.DocumentIDs) > 0 {
		ids = make(map[string]struct{}, len(filter.DocumentIDs))
		for _, id := range filter.DocumentIDs {
			ids[id] = struct{}{}
		}
	}
	out := make([]domain.Document, 0)
	for k, doc := range docs {
		if k.tenantID != filter.TenantID {
			continue
		}
		if ids != nil {
			if _, ok := ids[k.id]; !ok {
				continue
			}
		}
		if filter.Year != 0 {
			t, ok := doc.IssueTime()
			if !ok || t.Year() != filter.Year {
				continue
			}
		}
		out = append(out, *doc.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
