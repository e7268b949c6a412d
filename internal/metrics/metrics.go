// Package metrics exposes Prometheus counters for the curation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values for run and draft outcomes.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"

	ResultAccepted = "accepted"
	ResultRejected = "rejected"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	SourcingRuns    *prometheus.CounterVec
	ItemsClassified *prometheus.CounterVec
	FeedFailures    prometheus.Counter
	DraftsPublished *prometheus.CounterVec
}

// New registers the pipeline collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SourcingRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lemon_sourcing_runs_total",
			Help: "Completed sourcing runs by outcome.",
		}, []string{"status"}),
		ItemsClassified: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lemon_items_classified_total",
			Help: "Classified feed items by filter result.",
		}, []string{"result"}),
		FeedFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "lemon_feed_failures_total",
			Help: "Feed fetches or parses that contributed zero items.",
		}),
		DraftsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lemon_drafts_published_total",
			Help: "Draft submissions to the CMS by outcome.",
		}, []string{"status"}),
	}
}
