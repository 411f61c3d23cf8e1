package orderimport

import "github.com/shopspring/decimal"

// Order is one parsed recipient row ready for the label pipeline.
type Order struct {
	Name        string          `json:"name" validate:"required"`
	Address1    string          `json:"address1" validate:"required"`
	Address2    string          `json:"address2"`
	City        string          `json:"city" validate:"required"`
	State       string          `json:"state" validate:"required"`
	Zip         string          `json:"zip" validate:"required"`
	Weight      float64         `json:"weight" validate:"gte=0"`
	OrderNumber string          `json:"orderNumber"`
	Value       decimal.Decimal `json:"value"`
	ItemCount   int             `json:"itemCount" validate:"gte=0"`
	Notes       string          `json:"notes"`

	NonMachinable  bool    `json:"nonMachinable"`
	UseEnvelope    bool    `json:"useEnvelope"`
	ShippingShield bool    `json:"shippingShield"`
	UsePennySleeve bool    `json:"usePennySleeve"`
	UseTopLoader   bool    `json:"useTopLoader"`
	PackageName    *string `json:"packageName,omitempty"`
}

// Thresholds drive the derived machinability and envelope flags.
type Thresholds struct {
	ValueThreshold             decimal.Decimal
	NonMachinableItemThreshold int
}

var (
	DefaultValueThreshold     = decimal.NewFromInt(25)
	DefaultItemCountThreshold = 8
)

// DefaultThresholds returns the values used when a user has not configured any.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ValueThreshold:             DefaultValueThreshold,
		NonMachinableItemThreshold: DefaultItemCountThreshold,
	}
}

// ThresholdsFrom fills unset settings with defaults.
func ThresholdsFrom(value *decimal.Decimal, itemCount *int) Thresholds {
	th := DefaultThresholds()
	if value != nil {
		th.ValueThreshold = *value
	}
	if itemCount != nil {
		th.NonMachinableItemThreshold = *itemCount
	}
	return th
}

// Apply derives the machinability and envelope flags from the thresholds.
func (th Thresholds) Apply(o *Order) {
	o.NonMachinable = o.ItemCount >= th.NonMachinableItemThreshold
	o.UseEnvelope = o.Value.LessThanOrEqual(th.ValueThreshold)
}
