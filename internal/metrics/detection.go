package metrics

import "github.com/prometheus/client_golang/prometheus"

// Duplicate detection Prometheus metrics.
var (
	DetectionScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dedup",
			Name:      "detection_scans_total",
			Help:      "Total number of duplicate detection scans",
		},
		[]string{"status"}, // "success" / "error"
	)

	DetectionScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dedup",
			Name:      "detection_scan_duration_seconds",
			Help:      "Duplicate detection scan duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	DetectionCandidatesScanned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dedup",
			Name:      "detection_candidates_scanned",
			Help:      "Number of candidate reports compared per scan",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	MatchesRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dedup",
			Name:      "matches_recorded_total",
			Help:      "Match records written by outcome",
		},
		[]string{"outcome"}, // "created" / "reactivated" / "noop"
	)

	MatchReviewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dedup",
			Name:      "match_reviews_total",
			Help:      "Match review decisions",
		},
		[]string{"decision"}, // "confirmed" / "rejected"
	)
)

var detectionMetricsRegistered bool

// RegisterDetectionMetrics registers detection metrics. Must be called once from main.
func RegisterDetectionMetrics() {
	if detectionMetricsRegistered {
		return
	}
	prometheus.MustRegister(DetectionScansTotal)
	prometheus.MustRegister(DetectionScanDuration)
	prometheus.MustRegister(DetectionCandidatesScanned)
	prometheus.MustRegister(MatchesRecordedTotal)
	prometheus.MustRegister(MatchReviewsTotal)
	detectionMetricsRegistered = true
}
