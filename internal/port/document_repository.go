package port

import (
	"context"

	"limitguard/internal/domain"
)

// DocumentRepository defines the contract for document persistence.
// All lookups include tenantID; a document owned by another tenant is reported
// as domain.ErrDocumentNotFound.
type DocumentRepository interface {
	GetByID(ctx context.Context, tenantID, docID string) (*domain.Document, error)
	// Find returns the tenant's documents whose issue date falls within filter.Year,
	// narrowed to filter.DocumentIDs when non-empty.
	Find(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	// Put replaces the document wholesale, inserting it when absent.
	Put(ctx context.Context, doc *domain.Document) error
	// ListTenantsWithDocuments returns every tenant having at least one document dated in year.
	ListTenantsWithDocuments(ctx context.Context, year int) ([]string, error)
}
