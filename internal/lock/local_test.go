package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limitguard/internal/domain"
	"limitguard/internal/lock"
)

func TestLocalLocker_SerializesSameKey(t *testing.T) {
	l := lock.NewLocalLocker(20 * time.Millisecond)
	ctx := context.Background()

	first, err := l.Obtain(ctx, "limits:t1:2024", time.Second)
	require.NoError(t, err)

	_, err = l.Obtain(ctx, "limits:t1:2024", time.Second)
	assert.ErrorIs(t, err, domain.ErrLockNotObtained)

	other, err := l.Obtain(ctx, "limits:t2:2024", time.Second)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, first.Release(ctx))
	require.NoError(t, first.Release(ctx))

	again, err := l.Obtain(ctx, "limits:t1:2024", time.Second)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocalLocker_WaitsForRelease(t *testing.T) {
	l := lock.NewLocalLocker(time.Second)
	ctx := context.Background()

	held, err := l.Obtain(ctx, "k", time.Second)
	require.NoError(t, err)
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = held.Release(ctx)
	}()

	next, err := l.Obtain(ctx, "k", time.Second)
	require.NoError(t, err)
	require.NoError(t, next.Release(ctx))
}

func TestLocalLocker_ContextCanceled(t *testing.T) {
	l := lock.NewLocalLocker(time.Second)
	held, err := l.Obtain(context.Background(), "k", time.Second)
	require.NoError(t, err)
	defer held.Release(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Obtain(ctx, "k", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
