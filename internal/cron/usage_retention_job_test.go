package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaulttrove/labels-backend/pkg/logger"
)

type fakeUsagePruner struct {
	month string
	err   error
}

func (f *fakeUsagePruner) DeleteMonthsBefore(_ context.Context, month string) (int64, error) {
	f.month = month
	return 3, f.err
}

func TestUsageRetentionJobKeepsConfiguredMonths(t *testing.T) {
	repo := &fakeUsagePruner{}
	jobIface, err := NewUsageRetentionJob(UsageRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Repository: repo,
		Months:     3,
	})
	require.NoError(t, err)
	job := jobIface.(*usageRetentionJob)
	job.now = func() time.Time { return time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC) }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "2025-11", repo.month)
	assert.Equal(t, "usage-retention", job.Name())
}

func TestUsageRetentionJobDefaultsAndErrors(t *testing.T) {
	repo := &fakeUsagePruner{err: errors.New("db gone")}
	jobIface, err := NewUsageRetentionJob(UsageRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Repository: repo,
	})
	require.NoError(t, err)
	job := jobIface.(*usageRetentionJob)
	job.now = func() time.Time { return time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC) }

	assert.Error(t, job.Run(context.Background()))
	assert.Equal(t, "2025-10", repo.month)

	_, err = NewUsageRetentionJob(UsageRetentionJobParams{Repository: repo})
	assert.Error(t, err)
}
