package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaulttrove/labels-backend/pkg/enums"
)

// LabelOrder is the insert-only record of one purchased shipping label.
type LabelOrder struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID       string           `gorm:"column:user_id;not null;index"`
	BatchID      string           `gorm:"column:batch_id;not null;index"`
	BatchName    string           `gorm:"column:batch_name;not null"`
	OrderNumber  string           `gorm:"column:order_number;not null"`
	TrackingCode string           `gorm:"column:tracking_code;not null"`
	TrackingURL  string           `gorm:"column:tracking_url;not null"`
	LabelURL     string           `gorm:"column:label_url;not null"`
	ToName       string           `gorm:"column:to_name;not null"`
	Carrier      string           `gorm:"column:carrier;not null"`
	Service      string           `gorm:"column:service;not null"`
	LabelClass   enums.LabelClass `gorm:"column:label_class;not null"`

	LabelCost       decimal.Decimal `gorm:"column:label_cost;type:numeric(12,2);not null"`
	EnvelopeCost    decimal.Decimal `gorm:"column:envelope_cost;type:numeric(12,2);not null"`
	ShieldCost      decimal.Decimal `gorm:"column:shield_cost;type:numeric(12,2);not null"`
	PennySleeveCost decimal.Decimal `gorm:"column:penny_sleeve_cost;type:numeric(12,2);not null"`
	TopLoaderCost   decimal.Decimal `gorm:"column:top_loader_cost;type:numeric(12,2);not null"`
	TotalCost       decimal.Decimal `gorm:"column:total_cost;type:numeric(12,2);not null"`

	UseEnvelope    bool    `gorm:"column:use_envelope;not null"`
	ShippingShield bool    `gorm:"column:shipping_shield;not null"`
	UsePennySleeve bool    `gorm:"column:use_penny_sleeve;not null"`
	UseTopLoader   bool    `gorm:"column:use_top_loader;not null"`
	NonMachinable  bool    `gorm:"column:non_machinable;not null"`
	PackageName    *string `gorm:"column:package_name"`
	Notes          string  `gorm:"column:notes;not null;default:''"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (LabelOrder) TableName() string { return "orders" }
