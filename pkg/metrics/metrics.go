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

	ScansInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_scans_in_flight",
			Help: "Current number of running snapshot scans.",
		},
	)

	SnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshots_total",
			Help: "Total number of snapshots started and finished, by outcome.",
		},
		[]string{"outcome"}, // started, completed, failed, interrupted
	)

	PagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_pages_total",
			Help: "Total number of pages processed during scans.",
		},
		[]string{"status", "error_type"}, // status: success, failure
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "page_fetch_duration_seconds",
			Help:    "Duration of rendered page fetches.",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30},
		},
		[]string{"domain"},
	)

	DiscoveredLinks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "discovered_links",
			Help:    "Number of same-host links found per discovery.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	ComparisonsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comparisons_total",
			Help: "Total number of snapshot comparisons.",
		},
		[]string{"result"}, // success, rejected, error
	)
)
