package admin

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vaulttrove/labels-backend/pkg/db/models"
)

// Repository reads platform-wide aggregates.
type Repository interface {
	Counts(ctx context.Context) (Counts, error)
	TopUsers(ctx context.Context, limit int) ([]UserUsage, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

type costRow struct {
	OrderCount int64
	LabelCost  decimal.NullDecimal
}

func (r *repository) Counts(ctx context.Context) (Counts, error) {
	var out Counts
	if err := r.db.WithContext(ctx).Model(&models.UserSettings{}).Count(&out.Users).Error; err != nil {
		return Counts{}, fmt.Errorf("count users: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Batch{}).Count(&out.Batches).Error; err != nil {
		return Counts{}, fmt.Errorf("count batches: %w", err)
	}

	var row costRow
	if err := r.db.WithContext(ctx).
		Model(&models.LabelOrder{}).
		Select("COUNT(*) AS order_count, SUM(label_cost) AS label_cost").
		Scan(&row).Error; err != nil {
		return Counts{}, fmt.Errorf("sum orders: %w", err)
	}
	out.Orders = row.OrderCount
	out.LabelCost = decimal.Zero
	if row.LabelCost.Valid {
		out.LabelCost = row.LabelCost.Decimal.Round(2)
	}
	return out, nil
}

type topUserRow struct {
	UserID     string
	OrderCount int64
	TotalCost  decimal.NullDecimal
}

func (r *repository) TopUsers(ctx context.Context, limit int) ([]UserUsage, error) {
	var rows []topUserRow
	err := r.db.WithContext(ctx).
		Model(&models.LabelOrder{}).
		Select("user_id, COUNT(*) AS order_count, SUM(total_cost) AS total_cost").
		Group("user_id").
		Order("order_count DESC").
		Order("user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}
	out := make([]UserUsage, 0, len(rows))
	for _, row := range rows {
		total := decimal.Zero
		if row.TotalCost.Valid {
			total = row.TotalCost.Decimal.Round(2)
		}
		out = append(out, UserUsage{UserID: row.UserID, OrderCount: row.OrderCount, TotalCost: total})
	}
	return out, nil
}
