package batches

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vaulttrove/labels-backend/pkg/db/models"
)

const DefaultName = "Unnamed Batch"

// BatchUpsert creates a batch or merges the non-nil fields into an existing one.
type BatchUpsert struct {
	ID       string
	UserID   string
	Name     *string
	Notes    *string
	Archived *bool
}

// ListQuery filters the batch list.
type ListQuery struct {
	IncludeArchived bool
	From            *time.Time
	To              *time.Time
	Limit           int
}

// Summary is a batch with aggregates computed from its orders.
type Summary struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Notes      string          `json:"notes"`
	Archived   bool            `json:"archived"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	OrderCount int64           `json:"orderCount"`
	TotalCost  decimal.Decimal `json:"totalCost"`
}

// Repository persists batches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, in BatchUpsert) error
	Find(ctx context.Context, id string) (*models.Batch, error)
	List(ctx context.Context, userID string, q ListQuery) ([]Summary, error)
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

// Upsert inserts with defaults, or on conflict updates only the supplied
// columns. created_at and unspecified columns are never touched. The merge
// only applies to rows owned by the same user.
func (r *repository) Upsert(ctx context.Context, in BatchUpsert) error {
	now := time.Now().UTC()
	row := models.Batch{
		ID:        in.ID,
		UserID:    in.UserID,
		Name:      DefaultName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	updates := []string{"updated_at"}
	if in.Name != nil {
		if name := strings.TrimSpace(*in.Name); name != "" {
			row.Name = name
		}
		updates = append(updates, "name")
	}
	if in.Notes != nil {
		row.Notes = *in.Notes
		updates = append(updates, "notes")
	}
	if in.Archived != nil {
		row.Archived = *in.Archived
		updates = append(updates, "archived")
	}

	return r.db.WithContext(ctx).
		Select("*").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(updates),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "batches.user_id = excluded.user_id"},
			}},
		}).
		Create(&row).Error
}

// Find returns nil without error when the batch does not exist.
func (r *repository) Find(ctx context.Context, id string) (*models.Batch, error) {
	var row models.Batch
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

type summaryRow struct {
	ID         string
	Name       string
	Notes      string
	Archived   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	OrderCount int64
	TotalCost  decimal.NullDecimal
}

// List returns the user's batches newest first with order count and total cost.
func (r *repository) List(ctx context.Context, userID string, q ListQuery) ([]Summary, error) {
	query := r.db.WithContext(ctx).
		Table("batches AS b").
		Select("b.id, b.name, b.notes, b.archived, b.created_at, b.updated_at, COUNT(o.id) AS order_count, SUM(o.total_cost) AS total_cost").
		Joins("LEFT JOIN orders o ON o.batch_id = b.id").
		Where("b.user_id = ?", userID)
	if !q.IncludeArchived {
		query = query.Where("b.archived = ?", false)
	}
	if q.From != nil {
		query = query.Where("b.created_at >= ?", q.From.UTC())
	}
	if q.To != nil {
		query = query.Where("b.created_at < ?", q.To.UTC())
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var rows []summaryRow
	if err := query.
		Group("b.id, b.name, b.notes, b.archived, b.created_at, b.updated_at").
		Order("b.created_at DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		total := decimal.Zero
		if row.TotalCost.Valid {
			total = row.TotalCost.Decimal.Round(2)
		}
		out = append(out, Summary{
			ID:         row.ID,
			Name:       row.Name,
			Notes:      row.Notes,
			Archived:   row.Archived,
			CreatedAt:  row.CreatedAt,
			UpdatedAt:  row.UpdatedAt,
			OrderCount: row.OrderCount,
			TotalCost:  total,
		})
	}
	return out, nil
}
