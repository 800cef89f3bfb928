package ingest

import "github.com/prometheus/client_golang/prometheus"

var (
	// recordsTotal counts lake records by outcome: inserted, duplicate, invalid.
	recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_ingest_records_total",
			Help: "Lake records processed by the loader, by outcome.",
		},
		[]string{"outcome"},
	)

	// sourcesTotal counts lake files by outcome: loaded, skipped.
	sourcesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_ingest_sources_total",
			Help: "Lake source files visited by the loader, by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(recordsTotal, sourcesTotal)
}
