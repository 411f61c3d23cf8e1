package shipping

import (
	"strings"

	"github.com/vaulttrove/labels-backend/internal/orderimport"
	"github.com/vaulttrove/labels-backend/pkg/easypost"
	"github.com/vaulttrove/labels-backend/pkg/types"
)

const (
	LabelFormatPDF = "PDF"
	LabelSize4x6   = "4x6"
)

// BuildShipment assembles the carrier request for one order.
func BuildShipment(order orderimport.Order, from types.ShipAddress, parcel easypost.Parcel) easypost.ShipmentRequest {
	return easypost.ShipmentRequest{
		ToAddress: easypost.Address{
			Name:    strings.TrimSpace(order.Name),
			Street1: strings.TrimSpace(order.Address1),
			Street2: strings.TrimSpace(order.Address2),
			City:    strings.TrimSpace(order.City),
			State:   strings.TrimSpace(order.State),
			Zip:     NormalizeZip(order.Zip),
			Country: "US",
		},
		FromAddress: FromSettings(from),
		Parcel:      parcel,
		Options: easypost.Options{
			LabelFormat:  LabelFormatPDF,
			LabelSize:    LabelSize4x6,
			Machinable:   !order.NonMachinable,
			PrintCustom1: order.OrderNumber,
		},
		Reference: order.OrderNumber,
	}
}

// FromSettings converts the stored origin address.
func FromSettings(a types.ShipAddress) easypost.Address {
	return easypost.Address{
		Name:    a.Name,
		Company: a.Company,
		Street1: a.Street1,
		Street2: a.Street2,
		City:    a.City,
		State:   a.State,
		Zip:     a.Zip,
		Country: a.CountryOrDefault(),
		Phone:   a.Phone,
	}
}
