// Package costs computes the per-order cost breakdown stored with each label.
package costs

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	DefaultEnvelope      = decimal.RequireFromString("0.10")
	DefaultShield        = decimal.RequireFromString("0.10")
	DefaultPennySleeve   = decimal.RequireFromString("0.02")
	DefaultTopLoader     = decimal.RequireFromString("0.12")
	DefaultFallbackLabel = decimal.RequireFromString("0.63")
)

// Flags selects which add-ons an order uses.
type Flags struct {
	UseEnvelope    bool
	ShippingShield bool
	UsePennySleeve bool
	UseTopLoader   bool
}

// UnitPrices are the user's configured add-on prices. A nil price means the
// default applies; an explicit zero is honoured.
type UnitPrices struct {
	Envelope      *decimal.Decimal
	Shield        *decimal.Decimal
	PennySleeve   *decimal.Decimal
	TopLoader     *decimal.Decimal
	FallbackLabel *decimal.Decimal
}

type Breakdown struct {
	Label       decimal.Decimal `json:"labelCost"`
	Envelope    decimal.Decimal `json:"envelopeCost"`
	Shield      decimal.Decimal `json:"shieldCost"`
	PennySleeve decimal.Decimal `json:"pennySleeveCost"`
	TopLoader   decimal.Decimal `json:"topLoaderCost"`
	Total       decimal.Decimal `json:"totalCost"`
}

// Compute prices one label. An empty or unparseable label price falls back
// to the configured fallback.
func Compute(flags Flags, labelPrice string, prices UnitPrices) Breakdown {
	label, err := decimal.NewFromString(strings.TrimSpace(labelPrice))
	if err != nil {
		label = unit(prices.FallbackLabel, DefaultFallbackLabel)
	}

	b := Breakdown{
		Label:       label,
		Envelope:    decimal.Zero,
		Shield:      decimal.Zero,
		PennySleeve: decimal.Zero,
		TopLoader:   decimal.Zero,
	}
	if flags.UseEnvelope {
		b.Envelope = unit(prices.Envelope, DefaultEnvelope)
	}
	if flags.ShippingShield {
		b.Shield = unit(prices.Shield, DefaultShield)
	}
	if flags.UsePennySleeve {
		b.PennySleeve = unit(prices.PennySleeve, DefaultPennySleeve)
	}
	if flags.UseTopLoader {
		b.TopLoader = unit(prices.TopLoader, DefaultTopLoader)
	}
	b.Total = b.Label.Add(b.Envelope).Add(b.Shield).Add(b.PennySleeve).Add(b.TopLoader).Round(2)
	return b
}

func unit(configured *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if configured == nil {
		return fallback
	}
	return *configured
}
