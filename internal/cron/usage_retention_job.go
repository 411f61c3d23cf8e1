package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/vaulttrove/labels-backend/pkg/logger"
)

const usageRetentionMonths = 13

type UsageRetentionJobParams struct {
	Logger     *logger.Logger
	Repository usagePruner
	// Months of counters to keep, the current month included.
	Months int
}

type usagePruner interface {
	DeleteMonthsBefore(ctx context.Context, month string) (int64, error)
}

func NewUsageRetentionJob(params UsageRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("usage repository required")
	}
	months := params.Months
	if months <= 0 {
		months = usageRetentionMonths
	}
	return &usageRetentionJob{
		logg:   params.Logger,
		repo:   params.Repository,
		months: months,
		now:    time.Now,
	}, nil
}

type usageRetentionJob struct {
	logg   *logger.Logger
	repo   usagePruner
	months int
	now    func() time.Time
}

func (j *usageRetentionJob) Name() string { return "usage-retention" }

func (j *usageRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	oldest := firstOfMonth.AddDate(0, -(j.months - 1), 0).Format("2006-01")

	deleted, err := j.repo.DeleteMonthsBefore(ctx, oldest)
	if err != nil {
		return fmt.Errorf("usage retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"oldest_month": oldest,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "usage retention cleanup complete")
	return nil
}
