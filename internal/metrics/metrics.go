package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels operations that produced a result.
	OutcomeSuccess = "success"
	// OutcomeError labels operations rejected or failed mid-flight.
	OutcomeError = "error"
	// OutcomeUnavailable labels forecast attempts that declined to produce
	// a result (short history, non-convergence).
	OutcomeUnavailable = "unavailable"
)

var (
	detectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crimelens",
			Name:      "detections_total",
			Help:      "Total hotspot detection runs, partitioned by algorithm and outcome.",
		},
		[]string{"algorithm", "outcome"},
	)

	detectionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "crimelens",
			Name:      "detection_seconds",
			Help:      "Hotspot detection latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	forecastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crimelens",
			Name:      "forecasts_total",
			Help:      "Total forecast attempts, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	forecastDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "crimelens",
			Name:      "forecast_seconds",
			Help:      "Forecast fitting latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	datasetsLoadedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crimelens",
			Name:      "datasets_loaded_total",
			Help:      "Total dataset uploads, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register attaches crimelens collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		detectionsTotal,
		detectionDurationSeconds,
		forecastsTotal,
		forecastDurationSeconds,
		datasetsLoadedTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveDetection records one hotspot detection run.
func ObserveDetection(algorithm string, duration time.Duration, outcome string) {
	detectionsTotal.WithLabelValues(algorithm, normalise(outcome)).Inc()
	if duration < 0 {
		duration = 0
	}
	detectionDurationSeconds.Observe(duration.Seconds())
}

// ObserveForecast records one forecast attempt.
func ObserveForecast(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError && label != OutcomeUnavailable {
		label = OutcomeSuccess
	}
	forecastsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	forecastDurationSeconds.Observe(duration.Seconds())
}

// ObserveDatasetLoad records one dataset upload.
func ObserveDatasetLoad(outcome string) {
	datasetsLoadedTotal.WithLabelValues(normalise(outcome)).Inc()
}

func normalise(outcome string) string {
	if outcome != OutcomeError {
		return OutcomeSuccess
	}
	return OutcomeError
}
