package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification pipeline.
type Metrics struct {
	Verified        prometheus.Counter
	Failed          prometheus.Counter
	ManualReview    prometheus.Counter
	FraudAlerts     prometheus.Counter
	QualityRejects  prometheus.Counter
	VerifyDuration  prometheus.Histogram
	ExtractDuration prometheus.Histogram
}

// New creates a new Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		Verified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idswyft_verifications_verified_total",
			Help: "Total verifications that auto-approved",
		}),
		Failed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idswyft_verifications_failed_total",
			Help: "Total verifications that terminally failed",
		}),
		ManualReview: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idswyft_verifications_manual_review_total",
			Help: "Total verifications routed to manual review",
		}),
		FraudAlerts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idswyft_verifications_fraud_alerts_total",
			Help: "Total verifications that raised a fraud alert",
		}),
		QualityRejects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idswyft_verifications_quality_rejects_total",
			Help: "Total verifications rejected at the image quality gate",
		}),
		VerifyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idswyft_verify_duration_seconds",
			Help:    "Duration of full verification pipeline runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ExtractDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idswyft_extract_duration_seconds",
			Help:    "Duration of the field extraction stage",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// ObserveVerify records the duration of a full pipeline run.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveVerify(start time.Time) {
	m.VerifyDuration.Observe(time.Since(start).Seconds())
}

// ObserveExtract records the duration of the extraction stage.
func (m *Metrics) ObserveExtract(start time.Time) {
	m.ExtractDuration.Observe(time.Since(start).Seconds())
}
