package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaulttrove/labels-backend/pkg/enums"
	"github.com/vaulttrove/labels-backend/pkg/types"
)

// UserSettings holds the per-user carrier credential, origin address and pricing.
type UserSettings struct {
	UserID        string             `gorm:"column:user_id;primaryKey"`
	Email         *string            `gorm:"column:email"`
	CarrierAPIKey string             `gorm:"column:carrier_api_key;not null;default:''"`
	FromAddress   *types.ShipAddress `gorm:"column:from_address;type:jsonb"`

	EnvelopeCost    *decimal.Decimal `gorm:"column:envelope_cost;type:numeric(12,2)"`
	ShieldCost      *decimal.Decimal `gorm:"column:shield_cost;type:numeric(12,2)"`
	PennySleeveCost *decimal.Decimal `gorm:"column:penny_sleeve_cost;type:numeric(12,2)"`
	TopLoaderCost   *decimal.Decimal `gorm:"column:top_loader_cost;type:numeric(12,2)"`

	ValueThreshold     *decimal.Decimal `gorm:"column:value_threshold;type:numeric(12,2)"`
	CardCountThreshold *int             `gorm:"column:card_count_threshold"`

	Plan           enums.PlanTier       `gorm:"column:plan;not null;default:'free'"`
	PackagePresets types.PackagePresets `gorm:"column:package_presets;type:jsonb;not null;default:'[]'"`
	LogoURL        *string              `gorm:"column:logo_url"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (UserSettings) TableName() string { return "user_settings" }
