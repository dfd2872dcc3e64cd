package index

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upsertTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "location_index_upserts_total",
		Help: "Location entry writes grouped by outcome.",
	}, []string{"result"})

	removeTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "location_index_removals_total",
		Help: "Location entry removals (offline transitions).",
	})

	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "location_index_search_seconds",
		Help:    "Time spent executing geo radius searches.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
)
