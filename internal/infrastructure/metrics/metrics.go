package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamRequests tracks explorer and RPC calls by provider and outcome
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_stats_upstream_requests_total",
			Help: "Total number of upstream requests",
		},
		[]string{"provider", "outcome"},
	)

	// UpstreamRetries tracks backoff retries, mostly HTTP 429
	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_stats_upstream_retries_total",
			Help: "Total number of upstream retries",
		},
		[]string{"provider"},
	)

	// UpstreamLatency tracks upstream call latency
	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallet_stats_upstream_latency_seconds",
			Help:    "Upstream call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// CacheLookups tracks enrichment cache lookups by layer and result
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_stats_cache_lookups_total",
			Help: "Total number of enrichment cache lookups",
		},
		[]string{"kind", "layer", "result"},
	)

	// TransactionsClassified tracks classification outcomes
	TransactionsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_stats_transactions_classified_total",
			Help: "Total number of transactions classified",
		},
		[]string{"category", "tier"},
	)

	// StatsDuration tracks end-to-end stats computation time
	StatsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallet_stats_compute_duration_seconds",
			Help:    "Stats computation time in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 12, 20, 45},
		},
		[]string{"outcome"},
	)

	// SourceSelected tracks which provider answered
	SourceSelected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_stats_source_selected_total",
			Help: "Total number of fetches per selected source",
		},
		[]string{"source"},
	)
)
