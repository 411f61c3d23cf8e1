package labels

import (
	"github.com/shopspring/decimal"

	"github.com/vaulttrove/labels-backend/internal/orderimport"
	"github.com/vaulttrove/labels-backend/pkg/enums"
)

const (
	SourceUpload = "upload"
	SourceSingle = "single"

	SingleBatchName   = "Single Labels"
	SingleBatchNotes  = "Auto-generated for single-labels"
	singleBatchPrefix = "single-labels-"
)

// Request is one purchase run for a batch of parsed orders.
type Request struct {
	UserID     string
	BatchID    string
	BatchName  string
	BatchNotes string
	Orders     []orderimport.Order
	Source     string
}

// LabelRef points at one purchased label.
type LabelRef struct {
	URL         string `json:"url"`
	Tracking    string `json:"tracking"`
	OrderNumber string `json:"orderNumber"`
}

// Failure records why an order did not yield a persisted label.
type Failure struct {
	OrderNumber string              `json:"orderNumber"`
	Reason      enums.FailureReason `json:"reason"`
	Message     string              `json:"message"`
}

// Result groups purchased labels by class plus the per-order failures, in
// input order.
type Result struct {
	BatchID         string     `json:"batchId"`
	GroundAdvantage []LabelRef `json:"groundAdvantage"`
	Other           []LabelRef `json:"other"`
	Failures        []Failure  `json:"failures"`
}

// SingleRequest is a free-form address for a one-off label.
type SingleRequest struct {
	UserID        string           `json:"-"`
	Name          string           `json:"name" validate:"required"`
	Street1       string           `json:"street1" validate:"required"`
	Street2       string           `json:"street2"`
	City          string           `json:"city" validate:"required"`
	State         string           `json:"state" validate:"required"`
	Zip           string           `json:"zip" validate:"required"`
	OrderNumber   string           `json:"orderNumber"`
	Weight        *float64         `json:"weight,omitempty" validate:"omitempty,gt=0"`
	Value         *decimal.Decimal `json:"value,omitempty"`
	PackageName   *string          `json:"packageName,omitempty"`
	NonMachinable bool             `json:"nonMachinable"`
}

// SingleBatchID is the per-user batch that collects single labels.
func SingleBatchID(userID string) string {
	return singleBatchPrefix + userID
}

func newResult(batchID string) *Result {
	return &Result{
		BatchID:         batchID,
		GroundAdvantage: []LabelRef{},
		Other:           []LabelRef{},
		Failures:        []Failure{},
	}
}

// orderOutcome is what the pipeline produced for one order.
type orderOutcome struct {
	ref     LabelRef
	class   enums.LabelClass
	cost    decimal.Decimal
	failure *Failure
}
