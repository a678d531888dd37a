package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HarvestRequestsInQueue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "harvest_requests_in_queue",
			Help: "Current number of harvest requests waiting in the queue.",
		},
	)

	FragmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_fragments_total",
			Help: "Post fragments processed, by outcome.",
		},
		[]string{"outcome"}, // accepted, duplicate, unresolved_id, incomplete, target_reached, error
	)

	BackoffsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_backoffs_total",
			Help: "Number of cooldowns entered because a backoff window elapsed.",
		},
	)

	EnrichmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_enrichments_total",
			Help: "Profile enrichment attempts, by status.",
		},
		[]string{"status"}, // success, failure
	)

	HarvestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harvester_session_duration_seconds",
			Help:    "Wall-clock duration of harvest sessions.",
			Buckets: []float64{30, 60, 120, 300, 600, 1200, 3600},
		},
	)

	ForwardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_forwards_total",
			Help: "Records forwarded to the collector, by status.",
		},
		[]string{"status"}, // success, failure
	)

	ForwardDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collector_forward_duration_seconds",
			Help:    "Duration of single record forwards.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	ForwardsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "collector_forwards_in_flight",
			Help: "Forwards currently admitted by the upload gate.",
		},
	)
)
