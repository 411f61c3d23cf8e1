package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vaulttrove/labels-backend/pkg/db"
	"github.com/vaulttrove/labels-backend/pkg/db/models"
	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
	"github.com/vaulttrove/labels-backend/pkg/pagination"
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.LabelOrder) error
	ListByBatch(ctx context.Context, userID, batchID string) ([]models.LabelOrder, error)
	ListByUser(ctx context.Context, userID string, params pagination.Params) (*OrderList, error)
	Totals(ctx context.Context, userID string) (Totals, error)
	RecentBatches(ctx context.Context, userID string, limit int) ([]RecentBatch, error)
	OwnedLabelURLs(ctx context.Context, userID string, urls []string) (map[string]struct{}, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts a new order. Orders are never updated.
func (r *repository) Create(ctx context.Context, order *models.LabelOrder) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already exists")
		}
		return err
	}
	return nil
}

func (r *repository) ListByBatch(ctx context.Context, userID, batchID string) ([]models.LabelOrder, error) {
	var rows []models.LabelOrder
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND batch_id = ?", userID, batchID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ListByUser pages through history ordered by (created_at DESC, id DESC).
func (r *repository) ListByUser(ctx context.Context, userID string, params pagination.Params) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.LabelOrder
	if err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	page, more := pagination.Trim(rows, params.Limit)
	list := &OrderList{Orders: FromModels(page)}
	if more && len(page) > 0 {
		last := page[len(page)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

// OwnedLabelURLs returns the subset of urls stored on the user's orders.
func (r *repository) OwnedLabelURLs(ctx context.Context, userID string, urls []string) (map[string]struct{}, error) {
	owned := make(map[string]struct{}, len(urls))
	if len(urls) == 0 {
		return owned, nil
	}
	var found []string
	err := r.db.WithContext(ctx).
		Model(&models.LabelOrder{}).
		Distinct("label_url").
		Where("user_id = ? AND label_url IN ?", userID, urls).
		Pluck("label_url", &found).Error
	if err != nil {
		return nil, fmt.Errorf("owned label urls: %w", err)
	}
	for _, u := range found {
		owned[u] = struct{}{}
	}
	return owned, nil
}

type totalsRow struct {
	LabelCount   int64
	PostageTotal decimal.NullDecimal
}

func (r *repository) Totals(ctx context.Context, userID string) (Totals, error) {
	var row totalsRow
	err := r.db.WithContext(ctx).
		Model(&models.LabelOrder{}).
		Select("COUNT(*) AS label_count, SUM(label_cost) AS postage_total").
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return Totals{}, fmt.Errorf("order totals: %w", err)
	}

	var batchCount int64
	if err := r.db.WithContext(ctx).
		Model(&models.Batch{}).
		Where("user_id = ?", userID).
		Count(&batchCount).Error; err != nil {
		return Totals{}, fmt.Errorf("batch count: %w", err)
	}

	totals := Totals{BatchCount: batchCount, LabelCount: row.LabelCount, PostageTotal: decimal.Zero}
	if row.PostageTotal.Valid {
		totals.PostageTotal = row.PostageTotal.Decimal.Round(2)
	}
	return totals, nil
}

type recentRow struct {
	ID         string
	Name       string
	CreatedAt  time.Time
	OrderCount int64
	TotalCost  decimal.NullDecimal
}

func (r *repository) RecentBatches(ctx context.Context, userID string, limit int) ([]RecentBatch, error) {
	if limit <= 0 {
		limit = 3
	}
	var rows []recentRow
	err := r.db.WithContext(ctx).
		Table("batches AS b").
		Select("b.id, b.name, b.created_at, COUNT(o.id) AS order_count, SUM(o.total_cost) AS total_cost").
		Joins("LEFT JOIN orders o ON o.batch_id = b.id").
		Where("b.user_id = ? AND b.archived = ?", userID, false).
		Group("b.id, b.name, b.created_at").
		Order("b.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]RecentBatch, 0, len(rows))
	for _, row := range rows {
		total := decimal.Zero
		if row.TotalCost.Valid {
			total = row.TotalCost.Decimal.Round(2)
		}
		out = append(out, RecentBatch{
			ID:         row.ID,
			Name:       row.Name,
			CreatedAt:  row.CreatedAt,
			OrderCount: row.OrderCount,
			TotalCost:  total,
		})
	}
	return out, nil
}
