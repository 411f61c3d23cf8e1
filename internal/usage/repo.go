package usage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vaulttrove/labels-backend/pkg/db/models"
)

// Repository tracks monthly label counts per user.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Reserve(ctx context.Context, userID, month string, delta, ceiling int) (bool, error)
	Release(ctx context.Context, userID, month string, delta int) error
	Current(ctx context.Context, userID, month string) (int, error)
	DeleteMonthsBefore(ctx context.Context, month string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Reserve seeds the month row and then adds delta with a single conditional
// UPDATE, so concurrent callers can never push count past ceiling.
func (r *repository) Reserve(ctx context.Context, userID, month string, delta, ceiling int) (bool, error) {
	if delta <= 0 {
		return true, nil
	}
	now := time.Now().UTC()
	db := r.db.WithContext(ctx)

	seed := models.UsageCounter{UserID: userID, Month: month, Count: 0, UpdatedAt: now}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return false, err
	}

	res := db.Model(&models.UsageCounter{}).
		Where("user_id = ? AND month = ? AND count + ? <= ?", userID, month, delta, ceiling).
		Updates(map[string]any{
			"count":      gorm.Expr("count + ?", delta),
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Release gives back delta units, never dropping below zero.
func (r *repository) Release(ctx context.Context, userID, month string, delta int) error {
	if delta <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.UsageCounter{}).
		Where("user_id = ? AND month = ?", userID, month).
		Updates(map[string]any{
			"count":      gorm.Expr("CASE WHEN count >= ? THEN count - ? ELSE 0 END", delta, delta),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) Current(ctx context.Context, userID, month string) (int, error) {
	var row models.UsageCounter
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND month = ?", userID, month).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Count, nil
}

// DeleteMonthsBefore drops counters for months strictly earlier than month
// (YYYY-MM compares lexically).
func (r *repository) DeleteMonthsBefore(ctx context.Context, month string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("month < ?", month).
		Delete(&models.UsageCounter{})
	return res.RowsAffected, res.Error
}
