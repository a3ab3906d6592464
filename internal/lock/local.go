package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"limitguard/internal/domain"
	"limitguard/internal/port"
)

// LocalLocker serializes holders of the same key within one process. The ttl
// passed to Obtain is not enforced; holders must Release.
type LocalLocker struct {
	mu   sync.Mutex
	keys map[string]chan struct{}
	wait time.Duration
}

// NewLocalLocker creates a LocalLocker that waits up to wait for a busy key.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{keys: make(map[string]chan struct{}), wait: wait}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.keys[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.keys[key] = ch
	}
	return ch
}

// Obtain acquires key, blocking until it is free, the wait budget elapses, or ctx ends.
func (l *LocalLocker) Obtain(ctx context.Context, key string, _ time.Duration) (port.Lock, error) {
	ch := l.slot(key)
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return &localLock{ch: ch}, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s", domain.ErrLockNotObtained, key)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type localLock struct {
	once sync.Once
	ch   chan struct{}
}

func (l *localLock) Release(context.Context) error {
	l.once.Do(func() { <-l.ch })
	return nil
}
