// Package observability registers the process-wide Prometheus collectors.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts API requests by route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "API requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	// JobsProcessedTotal counts worker jobs by type and outcome.
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_processed_total",
		Help: "Queue jobs by type and outcome.",
	}, []string{"type", "outcome"})

	// ActivitiesSyncedTotal counts activities upserted from the provider.
	ActivitiesSyncedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "activities_synced_total",
		Help: "Activities upserted from the provider.",
	})

	// ActivitiesProcessedTotal counts processing runs by outcome.
	ActivitiesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "activities_processed_total",
		Help: "Processing pipeline runs by outcome.",
	}, []string{"outcome"})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
