package shipping

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vaulttrove/labels-backend/pkg/easypost"
	"github.com/vaulttrove/labels-backend/pkg/enums"
)

const (
	CarrierUSPS            = "USPS"
	ServiceGroundAdvantage = "GroundAdvantage"
)

// RateQuote is a carrier rate with its price parsed.
type RateQuote struct {
	ID         string
	ShipmentID string
	Carrier    string
	Service    string
	Price      decimal.Decimal
}

// QuotesFromRates parses carrier rates, skipping any with an unparseable price.
func QuotesFromRates(rates []easypost.Rate) []RateQuote {
	quotes := make([]RateQuote, 0, len(rates))
	for _, r := range rates {
		price, err := decimal.NewFromString(strings.TrimSpace(r.Rate))
		if err != nil {
			continue
		}
		quotes = append(quotes, RateQuote{
			ID:         r.ID,
			ShipmentID: r.ShipmentID,
			Carrier:    r.Carrier,
			Service:    r.Service,
			Price:      price,
		})
	}
	return quotes
}

// SelectRate prefers USPS Ground Advantage for high-value orders and
// otherwise takes the cheapest quote. Ties keep the first quote seen.
func SelectRate(quotes []RateQuote, highValue bool) (RateQuote, bool) {
	if len(quotes) == 0 {
		return RateQuote{}, false
	}
	if highValue {
		for _, q := range quotes {
			if strings.EqualFold(q.Carrier, CarrierUSPS) && q.Service == ServiceGroundAdvantage {
				return q, true
			}
		}
	}
	best := quotes[0]
	for _, q := range quotes[1:] {
		if q.Price.LessThan(best.Price) {
			best = q
		}
	}
	return best, true
}

// Classify buckets a purchased label by service.
func Classify(service string) enums.LabelClass {
	if service == ServiceGroundAdvantage {
		return enums.LabelClassGround
	}
	return enums.LabelClassOther
}

// NormalizeZip keeps the digits of a postal code.
func NormalizeZip(zip string) string {
	var b strings.Builder
	b.Grow(len(zip))
	for _, r := range zip {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
