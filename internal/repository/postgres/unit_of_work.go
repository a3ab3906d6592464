package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"limitguard/internal/port"
)

type unitOfWork struct {
	db *sqlx.DB
}

// NewUnitOfWork creates a UnitOfWork running each call in its own transaction.
// Documents read inside it are locked with SELECT ... FOR UPDATE.
func NewUnitOfWork(db *sqlx.DB) port.UnitOfWork {
	return &unitOfWork{db: db}
}

func (u *unitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos port.TxRepositories) error) (err error) {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unitOfWork.Do begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, port.TxRepositories{
		Documents: &documentRepo{db: tx, lockRows: true},
		Audit:     &documentAuditRepo{db: tx},
	}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("unitOfWork.Do commit: %w", err)
	}
	return nil
}
