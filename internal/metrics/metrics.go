// Package metrics provides Prometheus metrics for basket builds
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "meal_basket"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	buildsTotal        *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
	basketTotal        prometheus.Histogram
	basketScore        prometheus.Histogram
	replacementsTotal  prometheus.Counter
	warningsTotal      *prometheus.CounterVec
	embeddingRequests  *prometheus.CounterVec
	embeddingCacheHits *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		buildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_total",
				Help:      "Total number of basket builds",
			},
			[]string{"strategy", "outcome"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of basket pipeline stages in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"stage"},
		),
		basketTotal: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "basket_total_price",
				Help:      "Final basket price",
				Buckets:   prometheus.ExponentialBuckets(100, 2, 10),
			},
		),
		basketScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "basket_score",
				Help:      "Final basket compatibility score",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		replacementsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "repair_replacements_total",
				Help:      "Total number of items substituted by budget repair",
			},
		),
		warningsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "warnings_total",
				Help:      "Total number of build warnings",
			},
			[]string{"code"},
		),
		embeddingRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embedding_requests_total",
				Help:      "Total number of embedding service requests",
			},
			[]string{"provider", "status"},
		),
		embeddingCacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embedding_cache_total",
				Help:      "Embedding cache lookups",
			},
			[]string{"result"},
		),
	}
}

// ObserveBuild counts a finished build.
func (m *Metrics) ObserveBuild(strategy string, success bool, err error) {
	if m == nil {
		return
	}
	outcome := "partial"
	switch {
	case err != nil:
		outcome = "error"
	case success:
		outcome = "success"
	}
	m.buildsTotal.WithLabelValues(strategy, outcome).Inc()
}

// ObserveStage records the duration of a pipeline stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveBasket records the final price, score and replacement count.
func (m *Metrics) ObserveBasket(total, score float64, replacements int) {
	if m == nil {
		return
	}
	m.basketTotal.Observe(total)
	m.basketScore.Observe(score)
	m.replacementsTotal.Add(float64(replacements))
}

// Warning counts a build warning.
func (m *Metrics) Warning(code string) {
	if m == nil {
		return
	}
	m.warningsTotal.WithLabelValues(code).Inc()
}

// EmbeddingRequest counts a call to an embedding provider.
func (m *Metrics) EmbeddingRequest(provider string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.embeddingRequests.WithLabelValues(provider, status).Inc()
}

// CacheLookup counts embedding cache hits and misses.
func (m *Metrics) CacheLookup(hits, misses int) {
	if m == nil {
		return
	}
	m.embeddingCacheHits.WithLabelValues("hit").Add(float64(hits))
	m.embeddingCacheHits.WithLabelValues("miss").Add(float64(misses))
}
