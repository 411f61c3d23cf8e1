package settings

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vaulttrove/labels-backend/pkg/db/models"
	"github.com/vaulttrove/labels-backend/pkg/enums"
)

// Repository persists user_settings rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, userID string) (*models.UserSettings, error)
	Save(ctx context.Context, row *models.UserSettings) error
	UpdatePlan(ctx context.Context, userID string, plan enums.PlanTier) error
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

// Find returns nil without error when the user has no settings row yet.
func (r *repository) Find(ctx context.Context, userID string) (*models.UserSettings, error) {
	var row models.UserSettings
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Save inserts or replaces every user-editable column. The plan column is
// only written on insert.
func (r *repository) Save(ctx context.Context, row *models.UserSettings) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email",
			"carrier_api_key",
			"from_address",
			"envelope_cost",
			"shield_cost",
			"penny_sleeve_cost",
			"top_loader_cost",
			"value_threshold",
			"card_count_threshold",
			"package_presets",
			"logo_url",
			"updated_at",
		}),
	}).Create(row).Error
}

func (r *repository) UpdatePlan(ctx context.Context, userID string, plan enums.PlanTier) error {
	row := models.UserSettings{UserID: userID, Plan: plan}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan", "updated_at"}),
	}).Create(&row).Error
}
