package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supmatch_queries_total",
		Help: "Handled queries by outcome (ok, no_results, invalid, error).",
	}, []string{"outcome"})

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "supmatch_query_duration_seconds",
		Help:    "End-to-end query handling latency.",
		Buckets: prometheus.DefBuckets,
	})

	supervisorsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supmatch_supervisors_added_total",
		Help: "Supervisors appended through the add endpoint.",
	})
)
