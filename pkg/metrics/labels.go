package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LabelMetrics tracks the purchase pipeline.
type LabelMetrics struct {
	purchased       *prometheus.CounterVec
	failed          *prometheus.CounterVec
	batchDuration   *prometheus.HistogramVec
	quotaRejections prometheus.Counter
	postage         prometheus.Counter
}

// NewLabelMetrics registers the label pipeline metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewLabelMetrics(reg prometheus.Registerer) *LabelMetrics {
	if reg == nil {
		return &LabelMetrics{}
	}
	purchased := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vt_labels_purchased_total",
		Help: "Shipping labels purchased, by label class.",
	}, []string{"class"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vt_labels_failed_total",
		Help: "Orders that did not produce a persisted label, by reason.",
	}, []string{"reason"})
	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vt_label_batch_duration_seconds",
		Help:    "Wall time spent processing one label batch.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"source"})
	quota := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vt_label_quota_rejections_total",
		Help: "Batches rejected by the monthly label quota.",
	})
	postage := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vt_label_postage_dollars_total",
		Help: "Sum of postage spent on purchased labels.",
	})
	reg.MustRegister(purchased, failed, batchDuration, quota, postage)
	return &LabelMetrics{
		purchased:       purchased,
		failed:          failed,
		batchDuration:   batchDuration,
		quotaRejections: quota,
		postage:         postage,
	}
}

func (m *LabelMetrics) IncPurchased(class string) {
	if m == nil || m.purchased == nil {
		return
	}
	m.purchased.WithLabelValues(normalizeLabel(class)).Inc()
}

func (m *LabelMetrics) IncFailed(reason string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *LabelMetrics) ObserveBatch(source string, d time.Duration) {
	if m == nil || m.batchDuration == nil {
		return
	}
	m.batchDuration.WithLabelValues(normalizeLabel(source)).Observe(d.Seconds())
}

func (m *LabelMetrics) IncQuotaRejected() {
	if m == nil || m.quotaRejections == nil {
		return
	}
	m.quotaRejections.Inc()
}

// AddPostage adds dollars of postage; negative values are ignored.
func (m *LabelMetrics) AddPostage(dollars float64) {
	if m == nil || m.postage == nil || dollars <= 0 {
		return
	}
	m.postage.Add(dollars)
}
