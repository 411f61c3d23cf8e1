package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLockStore struct {
	held map[string]string
	err  error
}

func (m *memoryLockStore) AcquireLock(_ context.Context, key, owner string, _ time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.held[key]; ok {
		return false, nil
	}
	m.held[key] = owner
	return true, nil
}

func (m *memoryLockStore) ReleaseLock(_ context.Context, key, owner string) error {
	if m.held[key] == owner {
		delete(m.held, key)
	}
	return nil
}

func TestRedisLockSingleOwner(t *testing.T) {
	store := &memoryLockStore{held: map[string]string{}}
	first, err := NewRedisLock(store, "vt:lock:cron:test", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "vt:lock:cron:test", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, second.Release(ctx))
	assert.Len(t, store.held, 1)

	require.NoError(t, first.Release(ctx))
	assert.Empty(t, store.held)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockValidationAndErrors(t *testing.T) {
	_, err := NewRedisLock(nil, "k", 0)
	assert.Error(t, err)
	_, err = NewRedisLock(&memoryLockStore{}, "", 0)
	assert.Error(t, err)

	lock, err := NewRedisLock(&memoryLockStore{err: errors.New("redis down")}, "k", 0)
	require.NoError(t, err)
	_, err = lock.Acquire(context.Background())
	assert.ErrorContains(t, err, "redis down")
}
