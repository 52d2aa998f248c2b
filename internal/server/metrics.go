package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"brent_opt/internal/optimizer"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brentopt_runs_total",
		Help: "Minimization runs by method and outcome",
	}, []string{"method", "outcome"})
	runIterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "brentopt_run_iterations",
		Help:    "Iterations performed per finished run",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"method"})
	activeRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "brentopt_active_runs",
		Help: "Runs currently in progress",
	})
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brentopt_http_requests_total",
		Help: "HTTP requests by route",
	}, []string{"route"})
)

// Исходы запуска для метки outcome
const (
	outcomeConverged = "converged"
	outcomeMaxIter   = "max_iter"
	outcomeStopped   = "stopped"
	outcomeError     = "error"
)

func observeRun(method optimizer.Method, outcome string, iterations int) {
	runsTotal.WithLabelValues(string(method), outcome).Inc()
	if outcome != outcomeError {
		runIterations.WithLabelValues(string(method)).Observe(float64(iterations))
	}
}
