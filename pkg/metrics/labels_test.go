package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestLabelMetricsRecordsPipelineOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLabelMetrics(reg)

	m.IncPurchased("ground")
	m.IncPurchased("ground")
	m.IncFailed("no_rate_available")
	m.IncQuotaRejected()
	m.ObserveBatch("upload", 1500*time.Millisecond)
	m.AddPostage(4.2)
	m.AddPostage(-1)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "vt_labels_purchased_total", "class", "ground"); err != nil || got != 2 {
		t.Fatalf("expected purchased=2, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "vt_labels_failed_total", "reason", "no_rate_available"); err != nil || got != 1 {
		t.Fatalf("expected failed=1, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "vt_label_batch_duration_seconds", "source", "upload"); err != nil || got != 1.5 {
		t.Fatalf("expected duration sum 1.5, got %f (%v)", got, err)
	}

	quota := findMetricFamily(mfs, "vt_label_quota_rejections_total")
	if quota == nil || quota.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one quota rejection")
	}
	postage := findMetricFamily(mfs, "vt_label_postage_dollars_total")
	if postage == nil || postage.GetMetric()[0].GetCounter().GetValue() != 4.2 {
		t.Fatalf("expected postage 4.2")
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	var nilMetrics *LabelMetrics
	nilMetrics.IncPurchased("ground")

	m := NewLabelMetrics(nil)
	m.IncFailed("carrier_error")
	m.ObserveBatch("single", time.Second)

	o := NewOutboxMetrics(nil)
	o.IncPublished("label_batch_processed", "sqs")
}

func TestOutboxMetricsLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("label_batch_processed", "pubsub")
	m.IncFailed("label_batch_processed", "pubsub")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "vt_outbox_published_total", "sink", "pubsub"); err != nil || got != 1 {
		t.Fatalf("expected published=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "vt_outbox_failed_total", "event_type", "label_batch_processed"); err != nil || got != 1 {
		t.Fatalf("expected failed=1, got %f (%v)", got, err)
	}
}
