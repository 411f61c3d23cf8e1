package orderimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type field int

const (
	fieldFirstName field = iota
	fieldLastName
	fieldName
	fieldAddress1
	fieldAddress2
	fieldCity
	fieldState
	fieldZip
	fieldWeight
	fieldOrderNumber
	fieldValue
	fieldItemCount
	fieldNotes
)

type headerRule struct {
	field      field
	substrings []string
}

// headerTable is evaluated in order. More specific substrings are listed
// before generic ones so "product weight" wins over a bare "weight".
var headerTable = []headerRule{
	{fieldFirstName, []string{"firstname", "first name"}},
	{fieldLastName, []string{"lastname", "last name"}},
	{fieldAddress1, []string{"address1", "address 1"}},
	{fieldAddress2, []string{"address2", "address 2"}},
	{fieldCity, []string{"city"}},
	{fieldState, []string{"state"}},
	{fieldZip, []string{"postalcode", "postal code", "zip"}},
	{fieldWeight, []string{"product weight", "weight"}},
	{fieldOrderNumber, []string{"order #", "order number"}},
	{fieldValue, []string{"value of products", "value"}},
	{fieldItemCount, []string{"item count", "quantity"}},
	{fieldNotes, []string{"notes"}},
	{fieldName, []string{"name"}},
}

var ErrEmptyHeader = errors.New("csv header row is empty")

// Parse reads an RFC-4180 CSV of marketplace orders. Unknown columns are
// ignored and missing ones leave the field empty.
func Parse(r io.Reader, th Thresholds) ([]Order, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := mapHeader(header)
	if len(columns) == 0 && isBlank(header) {
		return nil, ErrEmptyHeader
	}

	orders := make([]Order, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if isBlank(record) {
			continue
		}
		order := buildOrder(record, columns)
		th.Apply(&order)
		orders = append(orders, order)
	}
	return orders, nil
}

// mapHeader returns the column index of each recognised field. The first
// matching column wins.
func mapHeader(header []string) map[field]int {
	columns := make(map[field]int)
	claimed := make(map[int]bool)
	for _, rule := range headerTable {
		for _, sub := range rule.substrings {
			if _, ok := columns[rule.field]; ok {
				break
			}
			for idx, raw := range header {
				if claimed[idx] {
					continue
				}
				if strings.Contains(normalizeHeader(raw), sub) {
					columns[rule.field] = idx
					claimed[idx] = true
					break
				}
			}
		}
	}
	return columns
}

func normalizeHeader(raw string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
}

func buildOrder(record []string, columns map[field]int) Order {
	get := func(f field) string {
		idx, ok := columns[f]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	name := strings.TrimSpace(get(fieldFirstName) + " " + get(fieldLastName))
	if name == "" {
		name = get(fieldName)
	}

	return Order{
		Name:           name,
		Address1:       get(fieldAddress1),
		Address2:       get(fieldAddress2),
		City:           get(fieldCity),
		State:          get(fieldState),
		Zip:            get(fieldZip),
		Weight:         parseWeight(get(fieldWeight)),
		OrderNumber:    get(fieldOrderNumber),
		Value:          parseMoney(get(fieldValue)),
		ItemCount:      parseCount(get(fieldItemCount)),
		Notes:          get(fieldNotes),
		UsePennySleeve: true,
	}
}

func parseWeight(raw string) float64 {
	w, err := strconv.ParseFloat(raw, 64)
	if err != nil || w <= 0 {
		return 1
	}
	return w
}

func parseMoney(raw string) decimal.Decimal {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(raw)
	d, err := decimal.NewFromString(strings.TrimSpace(cleaned))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseCount(raw string) int {
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f)
	}
	return 0
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
