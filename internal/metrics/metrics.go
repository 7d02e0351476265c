package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered on the default registry through promauto and
// exposed by the HTTP server under /metrics.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphbrowser_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphbrowser_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	// GraphQueriesTotal counts graph database calls by projection pass
	// ("primary", "edges") and outcome ("ok", "error").
	GraphQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphbrowser_graph_queries_total",
			Help: "Total number of graph queries issued by the projection engine",
		},
		[]string{"pass", "outcome"},
	)

	GraphQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphbrowser_graph_query_duration_seconds",
			Help:    "Duration of graph queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pass"},
	)

	ProjectedVertices = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphbrowser_projected_vertices",
			Help:    "Number of vertices in a projected graph",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	ImportedRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graphbrowser_imported_rows_total",
			Help: "Total number of CSV rows imported",
		},
	)
)
