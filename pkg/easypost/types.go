package easypost

import "fmt"

// Address is the EasyPost address object.
type Address struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
}

// Parcel describes the package. PredefinedPackage and dimensions are optional.
type Parcel struct {
	PredefinedPackage string   `json:"predefined_package,omitempty"`
	Weight            float64  `json:"weight"`
	Length            *float64 `json:"length,omitempty"`
	Width             *float64 `json:"width,omitempty"`
	Height            *float64 `json:"height,omitempty"`
}

// Options are the shipment options sent with every label purchase.
type Options struct {
	LabelFormat  string `json:"label_format,omitempty"`
	LabelSize    string `json:"label_size,omitempty"`
	Machinable   bool   `json:"machinable"`
	PrintCustom1 string `json:"print_custom_1,omitempty"`
}

// ShipmentRequest is the body of POST /shipments.
type ShipmentRequest struct {
	ToAddress   Address `json:"to_address"`
	FromAddress Address `json:"from_address"`
	Parcel      Parcel  `json:"parcel"`
	Options     Options `json:"options"`
	Reference   string  `json:"reference,omitempty"`
}

// Rate is one carrier quote. Rate is a decimal string ("4.20").
type Rate struct {
	ID         string `json:"id"`
	ShipmentID string `json:"shipment_id"`
	Carrier    string `json:"carrier"`
	Service    string `json:"service"`
	Rate       string `json:"rate"`
	Currency   string `json:"currency,omitempty"`
}

type PostageLabel struct {
	LabelURL    string `json:"label_url"`
	LabelFormat string `json:"label_file_type,omitempty"`
}

type Tracker struct {
	PublicURL string `json:"public_url"`
}

// Shipment is returned by both create and buy.
type Shipment struct {
	ID           string        `json:"id"`
	Rates        []Rate        `json:"rates"`
	SelectedRate *Rate         `json:"selected_rate,omitempty"`
	TrackingCode string        `json:"tracking_code,omitempty"`
	Tracker      *Tracker      `json:"tracker,omitempty"`
	PostageLabel *PostageLabel `json:"postage_label,omitempty"`
	Messages     []Message     `json:"messages,omitempty"`
}

// LabelURL returns the purchased label URL, empty when none was issued.
func (s *Shipment) LabelURL() string {
	if s == nil || s.PostageLabel == nil {
		return ""
	}
	return s.PostageLabel.LabelURL
}

// TrackingURL returns the public tracker URL when present.
func (s *Shipment) TrackingURL() string {
	if s == nil || s.Tracker == nil {
		return ""
	}
	return s.Tracker.PublicURL
}

// Message is a carrier-side warning attached to a shipment.
type Message struct {
	Carrier string `json:"carrier"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// APIError is the decoded error body EasyPost returns on non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("easypost %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("easypost %d: %s", e.StatusCode, e.Message)
}
