package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the prediction engine.
type Metrics struct {
	Predictions        *prometheus.CounterVec   // labels: component={forecast,attribution}, prediction_type
	PredictionDuration *prometheus.HistogramVec // labels: component
	FeedRequests       *prometheus.CounterVec   // labels: outcome={ok,unavailable,breaker_open}
	ModelLoaded        *prometheus.GaugeVec     // labels: component
	EnsembleBoosters   prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airquality",
			Name:      "predictions_total",
			Help:      "Predictions served by component and prediction type.",
		}, []string{"component", "prediction_type"}),
		PredictionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "airquality",
			Name:      "prediction_duration_seconds",
			Help:      "Time spent producing a prediction, including feed fetches.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"component"}),
		FeedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airquality",
			Name:      "feed_requests_total",
			Help:      "Live air-quality feed requests by outcome.",
		}, []string{"outcome"}),
		ModelLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "airquality",
			Name:      "model_loaded",
			Help:      "1 when the component's learned model is loaded, 0 otherwise.",
		}, []string{"component"}),
		EnsembleBoosters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airquality",
			Name:      "ensemble_boosters",
			Help:      "Number of boosters loaded into the forecast ensemble.",
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Predictions,
		m.PredictionDuration,
		m.FeedRequests,
		m.ModelLoaded,
		m.EnsembleBoosters,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics so tests can build many instances.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// ObservePrediction records one served prediction
func (m *Metrics) ObservePrediction(component, predictionType string, elapsed time.Duration) {
	m.Predictions.WithLabelValues(component, predictionType).Inc()
	m.PredictionDuration.WithLabelValues(component).Observe(elapsed.Seconds())
}

// ObserveFeed records one feed request outcome
func (m *Metrics) ObserveFeed(outcome string) {
	m.FeedRequests.WithLabelValues(outcome).Inc()
}

// SetModelLoaded publishes the load outcome of a component
func (m *Metrics) SetModelLoaded(component string, loaded bool) {
	v := 0.0
	if loaded {
		v = 1
	}
	m.ModelLoaded.WithLabelValues(component).Set(v)
}
