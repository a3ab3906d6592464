package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"limitguard/internal/domain"
	"limitguard/internal/port"
)

const documentColumns = `id, tenant_id, fields, created_at, updated_at`

type documentRepo struct {
	db sqlx.ExtContext
	// lockRows adds FOR UPDATE to point reads inside a transaction.
	lockRows bool
}

// NewDocumentRepo creates a new PostgreSQL-backed DocumentRepository.
func NewDocumentRepo(db *sqlx.DB) port.DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) GetByID(ctx context.Context, tenantID, docID string) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE tenant_id = $1 AND id = $2`
	if r.lockRows {
		query += ` FOR UPDATE`
	}
	var doc domain.Document
	err := sqlx.GetContext(ctx, r.db, &doc, query, tenantID, docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, docID)
		}
		return nil, fmt.Errorf("documentRepo.GetByID: %w", err)
	}
	return &doc, nil
}

func (r *documentRepo) Find(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE tenant_id = $1`
	args := []interface{}{filter.TenantID}
	if filter.Year != 0 {
		start, end := domain.YearBounds(filter.Year)
		args = append(args, start, end)
		query += fmt.Sprintf(` AND issue_date >= $%d AND issue_date < $%d`, len(args)-1, len(args))
	}
	if len(filter.DocumentIDs) > 0 {
		args = append(args, pq.Array(filter.DocumentIDs))
		query += fmt.Sprintf(` AND id = ANY($%d)`, len(args))
	}
	query += ` ORDER BY id`

	docs := []domain.Document{}
	if err := sqlx.SelectContext(ctx, r.db, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("documentRepo.Find: %w", err)
	}
	return docs, nil
}

func (r *documentRepo) Put(ctx context.Context, doc *domain.Document) error {
	var issueDate *time.Time
	if t, ok := doc.IssueTime(); ok {
		issueDate = &t
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (id, tenant_id, fields, issue_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (tenant_id, id) DO UPDATE SET
			fields = EXCLUDED.fields,
			issue_date = EXCLUDED.issue_date,
			updated_at = EXCLUDED.updated_at`,
		doc.ID, doc.TenantID, doc.Fields, issueDate, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("documentRepo.Put: %w", err)
	}
	return nil
}

func (r *documentRepo) ListTenantsWithDocuments(ctx context.Context, year int) ([]string, error) {
	start, end := domain.YearBounds(year)
	tenants := []string{}
	err := sqlx.SelectContext(ctx, r.db, &tenants,
		`SELECT DISTINCT tenant_id FROM documents
		 WHERE issue_date >= $1 AND issue_date < $2
		 ORDER BY tenant_id`, start, end)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ListTenantsWithDocuments: %w", err)
	}
	return tenants, nil
}
