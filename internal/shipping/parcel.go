package shipping

import (
	"fmt"
	"math"
	"strings"

	"github.com/vaulttrove/labels-backend/internal/orderimport"
	"github.com/vaulttrove/labels-backend/pkg/easypost"
	"github.com/vaulttrove/labels-backend/pkg/types"
)

const (
	PackageParcel = "Parcel"
	PackageLetter = "Letter"

	// HighValueWeightOz is the fixed weight used for boxed high-value orders.
	HighValueWeightOz = 3.0
)

// ErrUnknownPreset is returned when an order names a preset the user does not have.
type ErrUnknownPreset struct {
	Name string
}

func (e ErrUnknownPreset) Error() string {
	return fmt.Sprintf("unknown package preset %q", e.Name)
}

// ResolveParcel picks the parcel for an order: a named preset, then the
// high-value box, then a letter weighted by the order.
func ResolveParcel(order orderimport.Order, presets types.PackagePresets) (easypost.Parcel, error) {
	if order.PackageName != nil && strings.TrimSpace(*order.PackageName) != "" {
		preset, ok := presets.Find(*order.PackageName)
		if !ok {
			return easypost.Parcel{}, ErrUnknownPreset{Name: *order.PackageName}
		}
		weight := preset.Weight
		if weight <= 0 || math.IsNaN(weight) {
			weight = 1
		}
		return easypost.Parcel{
			PredefinedPackage: preset.PredefinedPackage,
			Weight:            weight,
			Length:            preset.Length,
			Width:             preset.Width,
			Height:            preset.Height,
		}, nil
	}

	if IsHighValue(order) {
		return easypost.Parcel{PredefinedPackage: PackageParcel, Weight: HighValueWeightOz}, nil
	}
	return easypost.Parcel{PredefinedPackage: PackageLetter, Weight: math.Max(1, order.Weight)}, nil
}

// IsHighValue reports whether the order ships boxed instead of in an envelope.
func IsHighValue(order orderimport.Order) bool {
	return !order.UseEnvelope
}
