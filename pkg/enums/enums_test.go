package enums

import "testing"

func TestParsePlanTier(t *testing.T) {
	cases := map[string]PlanTier{"": PlanFree, "free": PlanFree, " PRO ": PlanPro}
	for raw, want := range cases {
		got, err := ParsePlanTier(raw)
		if err != nil {
			t.Fatalf("ParsePlanTier(%q) error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParsePlanTier(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := ParsePlanTier("enterprise"); err == nil {
		t.Fatal("expected unknown tier to fail")
	}
	if !PlanPro.Unlimited() || PlanFree.Unlimited() {
		t.Fatal("only pro is unlimited")
	}
}

func TestFailureReasonLabelPurchased(t *testing.T) {
	for _, reason := range validFailureReasons {
		want := reason == FailurePersistFailed
		if got := reason.LabelPurchased(); got != want {
			t.Fatalf("%s.LabelPurchased() = %v, want %v", reason, got, want)
		}
	}
}

func TestParseRoundTrips(t *testing.T) {
	if _, err := ParseRole("admin"); err != nil {
		t.Fatalf("ParseRole: %v", err)
	}
	if _, err := ParseRole("owner"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
	if _, err := ParseLabelClass("ground"); err != nil {
		t.Fatalf("ParseLabelClass: %v", err)
	}
	if _, err := ParseOutboxEventType(string(EventLabelBatchProcessed)); err != nil {
		t.Fatalf("ParseOutboxEventType: %v", err)
	}
	if _, err := ParseFailureReason("canceled"); err != nil {
		t.Fatalf("ParseFailureReason: %v", err)
	}
}
