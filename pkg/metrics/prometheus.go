package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector tracks evaluation outcomes on its own registry, so multiple
// instances can coexist in tests.
type Collector struct {
	registry              *prometheus.Registry
	evaluationsTotal      *prometheus.CounterVec
	evaluationsFailed     prometheus.Counter
	idempotentReplays     prometheus.Counter
	evaluationDuration    prometheus.Histogram
	riskScoreDistribution prometheus.Histogram
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		evaluationsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "evaluations_total",
			Help: "Total number of completed transaction evaluations",
		}, []string{"decision"}),
		evaluationsFailed: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "evaluations_failed_total",
			Help: "Total number of failed transaction evaluations",
		}),
		idempotentReplays: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "idempotent_replays_total",
			Help: "Total number of requests answered from a stored idempotent response",
		}),
		evaluationDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "evaluation_duration_seconds",
			Help:    "Time taken to evaluate and persist a transaction",
			Buckets: prometheus.DefBuckets,
		}),
		riskScoreDistribution: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "evaluation_risk_score_distribution",
			Help:    "Distribution of computed risk scores",
			Buckets: []float64{0, 20, 40, 60, 80, 100},
		}),
	}
}

func (c *Collector) RecordEvaluation(duration time.Duration, riskScore int, decision string) {
	c.evaluationsTotal.WithLabelValues(decision).Inc()
	c.evaluationDuration.Observe(duration.Seconds())
	c.riskScoreDistribution.Observe(float64(riskScore))
}

func (c *Collector) RecordFailure() {
	c.evaluationsFailed.Inc()
}

func (c *Collector) RecordReplay() {
	c.idempotentReplays.Inc()
}

// Handler serves the collector's registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
