package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// PackagePreset is a named parcel definition a user can reference from an order.
type PackagePreset struct {
	Name              string   `json:"name"`
	PredefinedPackage string   `json:"predefinedPackage,omitempty"`
	Weight            float64  `json:"weight"`
	Length            *float64 `json:"length,omitempty"`
	Width             *float64 `json:"width,omitempty"`
	Height            *float64 `json:"height,omitempty"`
}

// PackagePresets is stored as a JSON array on user_settings.package_presets.
type PackagePresets []PackagePreset

// Find returns the preset whose name matches case-insensitively.
func (p PackagePresets) Find(name string) (PackagePreset, bool) {
	needle := strings.TrimSpace(name)
	if needle == "" {
		return PackagePreset{}, false
	}
	for _, preset := range p {
		if strings.EqualFold(strings.TrimSpace(preset.Name), needle) {
			return preset, true
		}
	}
	return PackagePreset{}, false
}

func (p PackagePresets) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]PackagePreset(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *PackagePresets) Scan(value interface{}) error {
	if value == nil {
		*p = PackagePresets{}
		return nil
	}
	raw, ok := toBytes(value)
	if !ok {
		return fmt.Errorf("package presets: unsupported scan type %T", value)
	}
	if len(raw) == 0 {
		*p = PackagePresets{}
		return nil
	}
	var out []PackagePreset
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("package presets: %w", err)
	}
	*p = out
	return nil
}
