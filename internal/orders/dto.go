package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaulttrove/labels-backend/pkg/db/models"
	"github.com/vaulttrove/labels-backend/pkg/enums"
)

// OrderDTO is the API shape of a purchased label.
type OrderDTO struct {
	ID              uuid.UUID        `json:"id"`
	BatchID         string           `json:"batchId"`
	BatchName       string           `json:"batchName"`
	OrderNumber     string           `json:"orderNumber"`
	ToName          string           `json:"toName"`
	TrackingCode    string           `json:"trackingCode"`
	TrackingURL     string           `json:"trackingUrl,omitempty"`
	LabelURL        string           `json:"labelUrl"`
	Carrier         string           `json:"carrier"`
	Service         string           `json:"service"`
	LabelClass      enums.LabelClass `json:"labelClass"`
	LabelCost       decimal.Decimal  `json:"labelCost"`
	EnvelopeCost    decimal.Decimal  `json:"envelopeCost"`
	ShieldCost      decimal.Decimal  `json:"shieldCost"`
	PennySleeveCost decimal.Decimal  `json:"pennySleeveCost"`
	TopLoaderCost   decimal.Decimal  `json:"topLoaderCost"`
	TotalCost       decimal.Decimal  `json:"totalCost"`
	UseEnvelope     bool             `json:"useEnvelope"`
	ShippingShield  bool             `json:"shippingShield"`
	UsePennySleeve  bool             `json:"usePennySleeve"`
	UseTopLoader    bool             `json:"useTopLoader"`
	NonMachinable   bool             `json:"nonMachinable"`
	PackageName     *string          `json:"packageName,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
}

func FromModel(m models.LabelOrder) OrderDTO {
	return OrderDTO{
		ID:              m.ID,
		BatchID:         m.BatchID,
		BatchName:       m.BatchName,
		OrderNumber:     m.OrderNumber,
		ToName:          m.ToName,
		TrackingCode:    m.TrackingCode,
		TrackingURL:     m.TrackingURL,
		LabelURL:        m.LabelURL,
		Carrier:         m.Carrier,
		Service:         m.Service,
		LabelClass:      m.LabelClass,
		LabelCost:       m.LabelCost,
		EnvelopeCost:    m.EnvelopeCost,
		ShieldCost:      m.ShieldCost,
		PennySleeveCost: m.PennySleeveCost,
		TopLoaderCost:   m.TopLoaderCost,
		TotalCost:       m.TotalCost,
		UseEnvelope:     m.UseEnvelope,
		ShippingShield:  m.ShippingShield,
		UsePennySleeve:  m.UsePennySleeve,
		UseTopLoader:    m.UseTopLoader,
		NonMachinable:   m.NonMachinable,
		PackageName:     m.PackageName,
		Notes:           m.Notes,
		CreatedAt:       m.CreatedAt,
	}
}

func FromModels(rows []models.LabelOrder) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

// OrderList is one page of order history.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// Totals aggregates a user's purchase history.
type Totals struct {
	BatchCount   int64           `json:"batchCount"`
	LabelCount   int64           `json:"labelCount"`
	PostageTotal decimal.Decimal `json:"postageTotal"`
}

// RecentBatch is a dashboard row.
type RecentBatch struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	CreatedAt  time.Time       `json:"createdAt"`
	OrderCount int64           `json:"orderCount"`
	TotalCost  decimal.Decimal `json:"totalCost"`
}

// Dashboard is the summary returned by GET /dashboard.
type Dashboard struct {
	Totals
	RecentBatches []RecentBatch `json:"recentBatches"`
}
