package usage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaulttrove/labels-backend/pkg/db/dbtest"
)

func TestReserveAdmitsWithinCeiling(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, dbtest.UsageTable))
	ctx := context.Background()

	ok, err := repo.Reserve(ctx, "user-1", "2026-10", 8, 10)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Reserve(ctx, "user-1", "2026-10", 3, 10)
	require.NoError(t, err)
	assert.False(t, ok, "8 + 3 must exceed the ceiling")

	ok, err = repo.Reserve(ctx, "user-1", "2026-10", 2, 10)
	require.NoError(t, err)
	assert.True(t, ok, "8 + 2 fits exactly")

	count, err := repo.Current(ctx, "user-1", "2026-10")
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}

func TestReserveSeparatesMonthsAndUsers(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, dbtest.UsageTable))
	ctx := context.Background()

	_, err := repo.Reserve(ctx, "user-1", "2026-09", 10, 10)
	require.NoError(t, err)

	ok, err := repo.Reserve(ctx, "user-1", "2026-10", 1, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Reserve(ctx, "user-2", "2026-09", 1, 10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseFloorsAtZero(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, dbtest.UsageTable))
	ctx := context.Background()

	_, err := repo.Reserve(ctx, "user-1", "2026-10", 3, 10)
	require.NoError(t, err)
	require.NoError(t, repo.Release(ctx, "user-1", "2026-10", 2))

	count, err := repo.Current(ctx, "user-1", "2026-10")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, repo.Release(ctx, "user-1", "2026-10", 5))
	count, err = repo.Current(ctx, "user-1", "2026-10")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCurrentMissingRowIsZero(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, dbtest.UsageTable))
	count, err := repo.Current(context.Background(), "nobody", "2026-10")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestReserveConcurrentNeverExceedsCeiling(t *testing.T) {
	conn := dbtest.Open(t, dbtest.UsageTable)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	repo := NewRepository(conn)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Reserve(ctx, "user-1", "2026-10", 3, 10)
			if err == nil && ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, admitted)
	count, err := repo.Current(ctx, "user-1", "2026-10")
	require.NoError(t, err)
	assert.Equal(t, 9, count)
}

func TestDeleteMonthsBeforeKeepsRecentMonths(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, dbtest.UsageTable))
	ctx := context.Background()
	for _, month := range []string{"2025-08", "2025-09", "2025-10", "2026-10"} {
		_, err := repo.Reserve(ctx, "user-1", month, 1, 10)
		require.NoError(t, err)
	}

	deleted, err := repo.DeleteMonthsBefore(ctx, "2025-10")
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	count, err := repo.Current(ctx, "user-1", "2025-10")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = repo.Current(ctx, "user-1", "2025-09")
	require.NoError(t, err)
	assert.Zero(t, count)
}
