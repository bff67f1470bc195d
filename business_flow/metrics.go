package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Listing status changes partitioned by previous and new status
	listingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_transitions_total",
			Help: "Total number of listing status transitions",
		},
		[]string{"from", "to"},
	)

	// Inquiry status changes partitioned by previous and new status
	inquiryTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inquiry_transitions_total",
			Help: "Total number of inquiry status transitions",
		},
		[]string{"from", "to"},
	)

	catalogUpdateConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_update_conflicts_total",
			Help: "Filter catalog writes rejected because the submitted version was stale",
		},
	)

	listingSearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "listing_search_duration_seconds",
			Help:    "Time spent evaluating a listing search",
			Buckets: prometheus.DefBuckets,
		},
	)
)
