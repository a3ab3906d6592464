// Package memory implements the repository ports in process memory. It backs
// the "memory" storage driver and the service tests.
package memory

import (
	"sync"

	"limitguard/internal/domain"
)

type docKey struct {
	tenantID string
	id       string
}

type snapKey struct {
	tenantID string
	year     int
	month    int
}

// Store holds all in-memory state shared by the repositories.
type Store struct {
	mu        sync.RWMutex
	docs      map[docKey]*domain.Document
	audit     []domain.AuditRecord
	snapshots map[snapKey]domain.MonthlySnapshot
	configs   map[int]domain.LimitConfig

	// txMu serializes transactions, standing in for row locks.
	txMu sync.Mutex

	auditFailure error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		docs:      make(map[docKey]*domain.Document),
		snapshots: make(map[snapKey]domain.MonthlySnapshot),
		configs:   make(map[int]domain.LimitConfig),
	}
}

// FailAuditAppends makes every subsequent audit append fail with err. Pass nil to clear.
func (s *Store) FailAuditAppends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditFailure = err
}

// Documents returns the document repository over s.
func (s *Store) Documents() *DocumentRepo { return &DocumentRepo{s: s} }

// Audit returns the audit repository over s.
func (s *Store) Audit() *AuditRepo { return &AuditRepo{s: s} }

// Snapshots returns the snapshot repository over s.
func (s *Store) Snapshots() *SnapshotRepo { return &SnapshotRepo{s: s} }

// LimitConfigs returns the limit config repository over s.
func (s *Store) LimitConfigs() *LimitConfigRepo { return &LimitConfigRepo{s: s} }

// UnitOfWork returns the transaction runner over s.
func (s *Store) UnitOfWork() *UnitOfWork { return &UnitOfWork{s: s} }
