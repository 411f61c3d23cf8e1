package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ShipAddress is a postal address stored as a JSON column (user_settings.from_address).
type ShipAddress struct {
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// IsComplete reports whether the address carries every field the carrier needs.
func (a *ShipAddress) IsComplete() bool {
	if a == nil {
		return false
	}
	for _, v := range []string{a.Name, a.Street1, a.City, a.State, a.Zip} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// CountryOrDefault returns the country code, US when unset.
func (a ShipAddress) CountryOrDefault() string {
	if c := strings.TrimSpace(a.Country); c != "" {
		return strings.ToUpper(c)
	}
	return "US"
}

// Value marshals the address to JSON.
func (a ShipAddress) Value() (driver.Value, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan decodes a JSON column.
func (a *ShipAddress) Scan(value interface{}) error {
	if value == nil {
		*a = ShipAddress{}
		return nil
	}
	raw, ok := toBytes(value)
	if !ok {
		return fmt.Errorf("ship address: unsupported scan type %T", value)
	}
	if len(raw) == 0 {
		*a = ShipAddress{}
		return nil
	}
	return json.Unmarshal(raw, a)
}

func toBytes(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case string:
		return []byte(v), true
	case []byte:
		return v, true
	default:
		return nil, false
	}
}
