// Package metrics exposes Prometheus collectors for the analysis cache, the
// daily hot-product sweep and the upstream product data source.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Market analysis cache
	AnalysisCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_analysis_cache_hits_total",
			Help: "Market analysis lookups answered without regeneration",
		},
		[]string{"layer"}, // "redis", "store", "stale"
	)

	AnalysisCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "market_analysis_cache_misses_total",
			Help: "Market analysis lookups that required regeneration",
		},
	)

	AnalysisUnavailable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "market_analysis_unavailable_total",
			Help: "Market analysis lookups rejected for insufficient product sample",
		},
	)

	AnalysisRegenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "market_analysis_regeneration_duration_seconds",
			Help:    "Duration of a full market analysis regeneration",
			Buckets: prometheus.DefBuckets,
		},
	)

	AnalysisDegradedScores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_analysis_degraded_scores_total",
			Help: "Scores that fell back to the neutral default because a statistic was unavailable",
		},
		[]string{"score"}, // "competition", "entry_barrier", "growth"
	)

	// Hot product sweep
	SweepCoverage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hot_product_sweep_categories_with_data",
			Help: "Categories that received a ranking in the last sweep",
		},
	)

	SweepCategoryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hot_product_sweep_category_failures_total",
			Help: "Per-category ranking failures across all sweeps",
		},
	)

	SweepIncomplete = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hot_product_sweep_incomplete_total",
			Help: "Sweeps that finished with less than full category coverage",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hot_product_sweep_duration_seconds",
			Help:    "Duration of the daily hot product sweep",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	HistoryPurgedRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hot_product_history_purged_rows_total",
			Help: "Hot product rows hard-deleted by the retention purge",
		},
	)

	// Upstream product data source
	SourceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_source_requests_total",
			Help: "Upstream product data source calls by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: "ok", "error", "rejected"
	)

	SourceBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "product_source_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// ObserveSince records the elapsed time since start on h
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Handler returns the HTTP handler serving the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
