// Package metrics exposes Prometheus counters for jobs and article outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Article outcomes.
const (
	OutcomeCreated = "created"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Enrichment steps.
const (
	StepSummarize = "summarize"
	StepScore     = "score"
	StepSelector  = "selector"
)

var (
	// JobsTotal counts jobs by type once they reach a terminal status.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_jobs_total",
		Help: "Jobs that reached a terminal status, by job type and status",
	}, []string{"type", "status"})

	// ArticlesTotal counts per-article outcomes of scrape jobs.
	ArticlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_articles_total",
		Help: "Articles handled by scrape jobs, by outcome (created, skipped, failed)",
	}, []string{"outcome"})

	// EnrichmentFailures counts completion calls that failed or could not be parsed.
	EnrichmentFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_enrichment_failures_total",
		Help: "Enrichment calls that fell back to their default result, by step",
	}, []string{"step"})
)

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
