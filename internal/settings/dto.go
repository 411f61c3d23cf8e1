package settings

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaulttrove/labels-backend/internal/costs"
	"github.com/vaulttrove/labels-backend/internal/orderimport"
	"github.com/vaulttrove/labels-backend/pkg/db/models"
	"github.com/vaulttrove/labels-backend/pkg/enums"
	"github.com/vaulttrove/labels-backend/pkg/types"
)

// Settings is the resolved per-request view used by the label pipeline.
type Settings struct {
	UserID         string
	CarrierAPIKey  string
	FromAddress    *types.ShipAddress
	Prices         costs.UnitPrices
	Thresholds     orderimport.Thresholds
	Plan           enums.PlanTier
	PackagePresets types.PackagePresets
}

// CarrierReady reports whether a label can be bought with these settings.
func (s Settings) CarrierReady() bool {
	return strings.TrimSpace(s.CarrierAPIKey) != "" && s.FromAddress.IsComplete()
}

func fromModel(userID string, m *models.UserSettings) Settings {
	if m == nil {
		return Settings{
			UserID:         userID,
			Plan:           enums.PlanFree,
			Thresholds:     orderimport.DefaultThresholds(),
			PackagePresets: types.PackagePresets{},
		}
	}
	plan := m.Plan
	if !plan.IsValid() {
		plan = enums.PlanFree
	}
	return Settings{
		UserID:        m.UserID,
		CarrierAPIKey: m.CarrierAPIKey,
		FromAddress:   m.FromAddress,
		Prices: costs.UnitPrices{
			Envelope:    m.EnvelopeCost,
			Shield:      m.ShieldCost,
			PennySleeve: m.PennySleeveCost,
			TopLoader:   m.TopLoaderCost,
		},
		Thresholds:     orderimport.ThresholdsFrom(m.ValueThreshold, m.CardCountThreshold),
		Plan:           plan,
		PackagePresets: m.PackagePresets,
	}
}

// SettingsDTO is returned by the settings endpoint. The carrier key is never echoed.
type SettingsDTO struct {
	UserID             string               `json:"userId"`
	Email              *string              `json:"email,omitempty"`
	CarrierKeySet      bool                 `json:"carrierKeySet"`
	CarrierKeyHint     string               `json:"carrierKeyHint,omitempty"`
	FromAddress        *types.ShipAddress   `json:"fromAddress,omitempty"`
	EnvelopeCost       decimal.Decimal      `json:"envelopeCost"`
	ShieldCost         decimal.Decimal      `json:"shieldCost"`
	PennySleeveCost    decimal.Decimal      `json:"pennySleeveCost"`
	TopLoaderCost      decimal.Decimal      `json:"topLoaderCost"`
	ValueThreshold     decimal.Decimal      `json:"valueThreshold"`
	CardCountThreshold int                  `json:"cardCountThreshold"`
	Plan               enums.PlanTier       `json:"plan"`
	PackagePresets     types.PackagePresets `json:"packagePresets"`
	LogoURL            *string              `json:"logoUrl,omitempty"`
	UpdatedAt          *time.Time           `json:"updatedAt,omitempty"`
}

func toDTO(userID string, m *models.UserSettings) *SettingsDTO {
	resolved := fromModel(userID, m)
	dto := &SettingsDTO{
		UserID:             userID,
		CarrierKeySet:      strings.TrimSpace(resolved.CarrierAPIKey) != "",
		CarrierKeyHint:     maskKey(resolved.CarrierAPIKey),
		FromAddress:        resolved.FromAddress,
		EnvelopeCost:       orDefault(resolved.Prices.Envelope, costs.DefaultEnvelope),
		ShieldCost:         orDefault(resolved.Prices.Shield, costs.DefaultShield),
		PennySleeveCost:    orDefault(resolved.Prices.PennySleeve, costs.DefaultPennySleeve),
		TopLoaderCost:      orDefault(resolved.Prices.TopLoader, costs.DefaultTopLoader),
		ValueThreshold:     resolved.Thresholds.ValueThreshold,
		CardCountThreshold: resolved.Thresholds.NonMachinableItemThreshold,
		Plan:               resolved.Plan,
		PackagePresets:     resolved.PackagePresets,
	}
	if dto.PackagePresets == nil {
		dto.PackagePresets = types.PackagePresets{}
	}
	if m != nil {
		dto.Email = m.Email
		dto.LogoURL = m.LogoURL
		updated := m.UpdatedAt
		dto.UpdatedAt = &updated
	}
	return dto
}

func orDefault(v *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if v == nil {
		return def
	}
	return *v
}

// maskKey keeps the last four characters.
func maskKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 4) + key[len(key)-4:]
}

// UpdateInput carries a partial settings update. Nil fields are left untouched.
type UpdateInput struct {
	Email              *string               `json:"email" validate:"omitempty,email"`
	CarrierAPIKey      *string               `json:"carrierApiKey"`
	FromAddress        *types.ShipAddress    `json:"fromAddress"`
	EnvelopeCost       *decimal.Decimal      `json:"envelopeCost"`
	ShieldCost         *decimal.Decimal      `json:"shieldCost"`
	PennySleeveCost    *decimal.Decimal      `json:"pennySleeveCost"`
	TopLoaderCost      *decimal.Decimal      `json:"topLoaderCost"`
	ValueThreshold     *decimal.Decimal      `json:"valueThreshold"`
	CardCountThreshold *int                  `json:"cardCountThreshold" validate:"omitempty,gte=0"`
	PackagePresets     *types.PackagePresets `json:"packagePresets"`
	LogoURL            *string               `json:"logoUrl" validate:"omitempty,url"`
}
