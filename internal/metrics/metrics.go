// Package metrics provides the centralized Prometheus registry for the recommendation engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fairway_edge"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Total number of runs by final status",
	}, []string{"status"})
	RecommendationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recommendations_total",
		Help:      "Total number of persisted recommendations by tier and whether they were fallback picks",
	}, []string{"tier", "fallback"})
	FetchErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_errors_total",
		Help:      "Total number of failed upstream fetches by stage",
	}, []string{"stage"})
	InvalidProbabilitiesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invalid_probabilities_total",
		Help:      "Total number of candidates dropped for an invalid probability or price",
	})
	IssuesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "issues_total",
		Help:      "Total number of run issues by severity and category",
	}, []string{"severity", "category"})
	CacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Upstream response cache lookups by result",
	}, []string{"result"})
)

// Gauge metrics
var (
	LastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time at which the last run finished",
	})
	LastRunRecommendations = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_recommendations",
		Help:      "Recommendations created by the last completed run",
	})
)

// Histogram metrics
var (
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of end-to-end runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})
	SimulationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "simulation_duration_seconds",
		Help:      "Duration of one event's Monte Carlo simulation in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	RecommendationConfidence = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "recommendation_confidence",
		Help:      "Confidence scores of selected recommendations",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(RunsTotal)
		registry.MustRegister(RecommendationsTotal)
		registry.MustRegister(FetchErrorsTotal)
		registry.MustRegister(InvalidProbabilitiesTotal)
		registry.MustRegister(IssuesTotal)
		registry.MustRegister(CacheLookupsTotal)

		registry.MustRegister(LastRunTimestamp)
		registry.MustRegister(LastRunRecommendations)

		registry.MustRegister(RunDuration)
		registry.MustRegister(SimulationDuration)
		registry.MustRegister(RecommendationConfidence)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordRun records a finished run.
func RecordRun(status string, durationSeconds float64, finishedUnix float64) {
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.Observe(durationSeconds)
	LastRunTimestamp.Set(finishedUnix)
}

// RecordRecommendation records one persisted recommendation.
func RecordRecommendation(tier string, fallback bool, confidence float64) {
	label := "false"
	if fallback {
		label = "true"
	}
	RecommendationsTotal.WithLabelValues(tier, label).Inc()
	RecommendationConfidence.Observe(confidence)
}

// SetLastRunRecommendations updates the last-run recommendation gauge.
func SetLastRunRecommendations(count int) {
	LastRunRecommendations.Set(float64(count))
}

// RecordFetchError records a failed upstream fetch.
func RecordFetchError(stage string) {
	FetchErrorsTotal.WithLabelValues(stage).Inc()
}

// RecordInvalidProbabilities adds dropped candidates.
func RecordInvalidProbabilities(n int) {
	InvalidProbabilitiesTotal.Add(float64(n))
}

// RecordIssue records a run issue.
func RecordIssue(severity, category string) {
	IssuesTotal.WithLabelValues(severity, category).Inc()
}

// RecordSimulation records one event's simulation time.
func RecordSimulation(durationSeconds float64) {
	SimulationDuration.Observe(durationSeconds)
}

// RecordCacheLookup records a response cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		CacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	CacheLookupsTotal.WithLabelValues("miss").Inc()
}
