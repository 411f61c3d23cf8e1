package payloads

import "time"

// LabelBatchProcessedEvent summarises one run of the purchase pipeline.
type LabelBatchProcessedEvent struct {
	BatchID          string         `json:"batch_id"`
	BatchName        string         `json:"batch_name"`
	UserID           string         `json:"user_id"`
	Source           string         `json:"source"`
	Requested        int            `json:"requested"`
	Purchased        int            `json:"purchased"`
	GroundCount      int            `json:"ground_count"`
	OtherCount       int            `json:"other_count"`
	FailuresByReason map[string]int `json:"failures_by_reason,omitempty"`
	PostageTotal     string         `json:"postage_total"`
	ReleasedUnits    int            `json:"released_units"`
	Month            string         `json:"month,omitempty"`
	CompletedAt      time.Time      `json:"completed_at"`
}

// PlanChangedEvent is emitted when an administrator changes a user's plan.
type PlanChangedEvent struct {
	UserID    string `json:"user_id"`
	FromPlan  string `json:"from_plan"`
	ToPlan    string `json:"to_plan"`
	ChangedBy string `json:"changed_by"`
}
