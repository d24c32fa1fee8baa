package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	requestsTotal      *prometheus.CounterVec
	latencySeconds     *prometheus.HistogramVec
	errorsTotal        *prometheus.CounterVec
	judgeScoresTotal   prometheus.Counter
	winnersSelections  prometheus.Counter
	payoutsTotal       *prometheus.CounterVec
	distributionsTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitcharena_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pitcharena_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitcharena_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		judgeScoresTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitcharena_judge_scores_total",
			Help: "Total number of judge scores recorded.",
		})

		winnersSelections = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitcharena_winner_selections_total",
			Help: "Total number of winner-selection operations performed.",
		})

		payoutsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitcharena_payouts_total",
			Help: "Prize payout attempts grouped by outcome.",
		}, []string{"outcome"})

		distributionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitcharena_judge_distributions_total",
			Help: "Total number of judge workload distributions executed.",
		})

		prometheus.MustRegister(
			requestsTotal, latencySeconds, errorsTotal,
			judgeScoresTotal, winnersSelections, payoutsTotal, distributionsTotal,
		)
	})
}

// Requests exposes the request counter.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// Errors exposes the error counter.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return errorsTotal
}

// JudgeScores exposes the judge score counter.
func JudgeScores() prometheus.Counter {
	RegisterMetrics()
	return judgeScoresTotal
}

// WinnerSelections exposes the winner-selection counter.
func WinnerSelections() prometheus.Counter {
	RegisterMetrics()
	return winnersSelections
}

// Payouts exposes the payout outcome counter.
func Payouts() *prometheus.CounterVec {
	RegisterMetrics()
	return payoutsTotal
}

// Distributions exposes the judge distribution counter.
func Distributions() prometheus.Counter {
	RegisterMetrics()
	return distributionsTotal
}
