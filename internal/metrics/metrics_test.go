package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBuild("scenario", true, nil)
		m.ObserveStage("fetch", time.Second)
		m.ObserveBasket(100, 0.5, 1)
		m.Warning("over_budget")
		m.EmbeddingRequest("ollama", nil)
		m.CacheLookup(1, 2)
	})
}

func TestObserveBuild(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveBuild("scenario", true, nil)
	m.ObserveBuild("scenario", false, nil)
	m.ObserveBuild("sequential", false, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.buildsTotal.WithLabelValues("scenario", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.buildsTotal.WithLabelValues("scenario", "partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.buildsTotal.WithLabelValues("sequential", "error")))
}

func TestCountersAndCache(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveBasket(1200, 0.7, 3)
	m.Warning("over_budget")
	m.Warning("over_budget")
	m.CacheLookup(4, 1)
	m.EmbeddingRequest("ollama", errors.New("timeout"))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.replacementsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.warningsTotal.WithLabelValues("over_budget")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.embeddingCacheHits.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.embeddingCacheHits.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.embeddingRequests.WithLabelValues("ollama", "error")))
}

func TestRegistryRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
