package enums

import (
	"fmt"
	"strings"
)

// PlanTier is the subscription tier stored on user_settings.plan.
type PlanTier string

const (
	PlanFree PlanTier = "free"
	PlanPro  PlanTier = "pro"
)

var validPlanTiers = []PlanTier{
	PlanFree,
	PlanPro,
}

// String implements fmt.Stringer.
func (p PlanTier) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PlanTier.
func (p PlanTier) IsValid() bool {
	for _, candidate := range validPlanTiers {
		if candidate == p {
			return true
		}
	}
	return false
}

// Unlimited reports whether the tier skips the monthly label quota.
func (p PlanTier) Unlimited() bool {
	return p == PlanPro
}

// ParsePlanTier converts raw input into a PlanTier. Empty input is the free tier.
func ParsePlanTier(value string) (PlanTier, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return PlanFree, nil
	}
	for _, candidate := range validPlanTiers {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan tier %q", value)
}
