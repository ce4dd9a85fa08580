package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragcore",
			Name:      "retrieval_requests_total",
			Help:      "Total number of retrieval requests",
		},
		[]string{"outcome"}, // "results" / "empty"
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragcore",
			Name:      "retrieval_duration_seconds",
			Help:      "End-to-end retrieval duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"path"}, // "cached" / "full"
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragcore",
			Name:      "cache_total",
			Help:      "Cache hits and misses per cache",
		},
		[]string{"cache", "result"}, // cache: "embedding"/"search"/"expansion", result: "hit"/"miss"
	)

	EmbeddingFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragcore",
			Name:      "embedding_fallback_total",
			Help:      "Embedding requests served by the deterministic fallback",
		},
	)

	ExpansionRoundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragcore",
			Name:      "expansion_rounds_total",
			Help:      "Query expansion rounds executed",
		},
	)

	ExpansionDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragcore",
			Name:      "expansion_dropped_total",
			Help:      "Expansion candidates dropped before use",
		},
		[]string{"reason"}, // "drift" / "malformed"
	)

	SearchFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragcore",
			Name:      "search_text_fallback_total",
			Help:      "Searches answered by the keyword fallback path",
		},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalRequestsTotal)
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(EmbeddingFallbackTotal)
	prometheus.MustRegister(ExpansionRoundsTotal)
	prometheus.MustRegister(ExpansionDroppedTotal)
	prometheus.MustRegister(SearchFallbackTotal)
	retrievalMetricsRegistered = true
}
