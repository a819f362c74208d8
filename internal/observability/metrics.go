package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skill_analytics_analyses_total",
		Help: "Repository analyses by operation and outcome.",
	}, []string{"operation", "outcome"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skill_analytics_analysis_seconds",
		Help:    "Time spent fetching, aggregating and persisting one repository analysis.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
	}, []string{"operation"})

	SkillEvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skill_analytics_evaluations_total",
		Help: "Skill evaluation requests by outcome.",
	}, []string{"outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skill_analytics_http_request_seconds",
		Help:    "API request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Analysis outcomes
const (
	OutcomeCreated         = "created"
	OutcomeAlreadyAnalyzed = "already_analyzed"
	OutcomeRefreshed       = "refreshed"
	OutcomeExisting        = "existing"
	OutcomeEvaluated       = "evaluated"
	OutcomeRejected        = "rejected"
	OutcomeFailed          = "failed"
)
