package enums

import "fmt"

// FailureReason tags why a single order in a batch did not produce a label.
type FailureReason string

const (
	FailureInvalidOrder    FailureReason = "invalid_order"
	FailureCarrierError    FailureReason = "carrier_error"
	FailureNoRateAvailable FailureReason = "no_rate_available"
	FailurePurchaseFailed  FailureReason = "purchase_failed"
	FailurePersistFailed   FailureReason = "persist_failed"
	FailureUnexpected      FailureReason = "unexpected"
	FailureCanceled        FailureReason = "canceled"
)

var validFailureReasons = []FailureReason{
	FailureInvalidOrder,
	FailureCarrierError,
	FailureNoRateAvailable,
	FailurePurchaseFailed,
	FailurePersistFailed,
	FailureUnexpected,
	FailureCanceled,
}

func (f FailureReason) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FailureReason.
func (f FailureReason) IsValid() bool {
	for _, candidate := range validFailureReasons {
		if candidate == f {
			return true
		}
	}
	return false
}

// LabelPurchased reports whether a label was bought before the failure
// happened, meaning the quota unit stays consumed.
func (f FailureReason) LabelPurchased() bool {
	return f == FailurePersistFailed
}

// ParseFailureReason converts raw input into a FailureReason.
func ParseFailureReason(value string) (FailureReason, error) {
	for _, candidate := range validFailureReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid failure reason %q", value)
}
