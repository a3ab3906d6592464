package port

import (
	"context"
	"time"
)

// Lock is a held lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker hands out short-lived named locks. Obtain returns
// domain.ErrLockNotObtained when the key stays busy past the locker's retry budget.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}
