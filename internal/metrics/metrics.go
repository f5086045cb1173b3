// Package metrics exposes Prometheus collectors for the prediction service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors around one registry.
type Metrics struct {
	registry         *prometheus.Registry
	Predictions      *prometheus.CounterVec
	PredictionErrors *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ModelInfo        *prometheus.GaugeVec
}

// New registers the collectors, plus Go and process collectors, on a fresh
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spice_predictions_total",
			Help: "Predictions served, by predicted category",
		}, []string{"category"}),
		PredictionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spice_prediction_errors_total",
			Help: "Rejected or failed predictions, by reason",
		}, []string{"reason"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spice_http_request_duration_seconds",
			Help:    "HTTP request duration seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "status"}),
		ModelInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "spice_model_info",
			Help: "Loaded model, labeled by training run",
		}, []string{"run_id", "trees", "vocabulary"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePrediction counts a successful prediction.
func (m *Metrics) ObservePrediction(category string) {
	m.Predictions.WithLabelValues(category).Inc()
}

// ObserveError counts a rejected or failed prediction.
func (m *Metrics) ObserveError(reason string) {
	m.PredictionErrors.WithLabelValues(reason).Inc()
}

// ObserveRequest records how long a request took.
func (m *Metrics) ObserveRequest(path string, status int, start time.Time) {
	m.RequestDuration.WithLabelValues(path, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}

// SetModel marks the loaded model.
func (m *Metrics) SetModel(runID string, trees, vocabulary int) {
	m.ModelInfo.Reset()
	m.ModelInfo.WithLabelValues(runID, strconv.Itoa(trees), strconv.Itoa(vocabulary)).Set(1)
}
