package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// prediction pipeline.
type Metrics struct {
	CyclesTotal   *prometheus.CounterVec // labels: outcome={completed,aborted}
	CycleDuration prometheus.Histogram
	CycleRunning  prometheus.Gauge

	// Signal acquisition metrics.
	SourceFetches      *prometheus.CounterVec // labels: signal, outcome={ok,fallback}
	SourceFetchSeconds *prometheus.HistogramVec

	// Scoring metrics.
	LastPrediction     prometheus.Gauge
	EngineModelLoaded  prometheus.Gauge // 1 when the model artifact loaded, 0 in heuristic mode
	InferenceFallbacks prometheus.Counter

	// Downstream step failures (cycle-aborting, never process-fatal).
	StoreErrors     prometheus.Counter
	BroadcastErrors prometheus.Counter

	// Alerting.
	AlertsSent       prometheus.Counter
	AlertsSuppressed *prometheus.CounterVec // labels: reason={low_risk,already_sent,cooldown,disabled}
	DeliveryErrors   prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.CycleRunning,
		m.SourceFetches,
		m.SourceFetchSeconds,
		m.LastPrediction,
		m.EngineModelLoaded,
		m.InferenceFallbacks,
		m.StoreErrors,
		m.BroadcastErrors,
		m.AlertsSent,
		m.AlertsSuppressed,
		m.DeliveryErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "cycles_total",
			Help:      "Prediction cycles by outcome.",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_risk",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-score-persist-broadcast-alert cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 15},
		}),
		CycleRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_risk",
			Name:      "cycle_running",
			Help:      "1 while a cycle is in flight, 0 otherwise.",
		}),
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "source_fetches_total",
			Help:      "Signal fetches by signal and outcome.",
		}, []string{"signal", "outcome"}),
		SourceFetchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flood_risk",
			Name:      "source_fetch_duration_seconds",
			Help:      "Provider request duration per signal.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"signal"}),
		LastPrediction: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_risk",
			Name:      "last_prediction",
			Help:      "Most recent risk score (0-100).",
		}),
		EngineModelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_risk",
			Name:      "engine_model_loaded",
			Help:      "1 when the predictive model loaded, 0 when scoring heuristically.",
		}),
		InferenceFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "engine_inference_fallbacks_total",
			Help:      "Per-call heuristic fallbacks caused by inference errors.",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "store_errors_total",
			Help:      "Failed record persistence attempts.",
		}),
		BroadcastErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "broadcast_errors_total",
			Help:      "Failed floodUpdate publishes.",
		}),
		AlertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "alerts_sent_total",
			Help:      "Successfully delivered flood alerts.",
		}),
		AlertsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "alerts_suppressed_total",
			Help:      "Alerts not sent, by reason.",
		}, []string{"reason"}),
		DeliveryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "alert_delivery_errors_total",
			Help:      "Failed notifier deliveries.",
		}),
	}
}
