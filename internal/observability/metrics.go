package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	rankingConflictsTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the results API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "results_api_requests_total",
			Help: "Total number of results API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "results_api_latency_seconds",
			Help:    "Latency distribution for results API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "results_api_errors_total",
			Help: "Total number of error responses returned by the results API.",
		}, []string{"method", "route", "status"})

		rankingConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "results_ranking_conflicts_total",
			Help: "Total number of cohort ranking passes retried due to concurrent edits.",
		})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, rankingConflictsTotal)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// RankingConflicts exposes the counter for retried ranking passes.
func RankingConflicts() prometheus.Counter {
	RegisterMetrics()
	return rankingConflictsTotal
}
