package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openingq_analytics_requests_total",
		Help: "Analytics requests by endpoint and outcome (ok, status, transport, decode).",
	}, []string{"endpoint", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "openingq_analytics_request_duration_seconds",
		Help:    "Analytics request latency by endpoint.",
		Buckets: prometheus.ExponentialBuckets(0.025, 2, 10),
	}, []string{"endpoint"})
)
