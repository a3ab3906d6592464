package port

import "context"

// TxRepositories are repositories bound to a single transaction.
type TxRepositories struct {
	Documents DocumentRepository
	Audit     DocumentAuditRepository
}

// UnitOfWork runs fn inside one transaction. Writes made through the provided
// repositories become visible only if fn returns nil; any error rolls them back.
// Documents read through repos.Documents are locked for the rest of the transaction.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}
