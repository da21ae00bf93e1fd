package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every collector of this process. A dedicated registry keeps
// Pushgateway pushes free of Go runtime series.
var Registry = prometheus.NewRegistry()

var (
	EventsIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commercepulse_events_ingested_total",
		Help: "Events upserted into the raw event store, labelled by source (bootstrap, live).",
	}, []string{"source"})

	EventsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commercepulse_events_skipped_total",
		Help: "Input lines or records rejected during ingestion, labelled by source.",
	}, []string{"source"})

	EventsFetched = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "commercepulse_transform_events_fetched",
		Help: "Raw events read by the last transform run.",
	})

	FactRows = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "commercepulse_fact_rows",
		Help: "Rows produced by the last transform run, labelled by fact table.",
	}, []string{"table"})

	EventsExcluded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "commercepulse_transform_events_excluded",
		Help: "Raw events that matched no fact category in the last transform run.",
	})

	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "commercepulse_stage_duration_seconds",
		Help:    "Duration of pipeline stages in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"stage"})

	LastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "commercepulse_transform_last_success_timestamp_seconds",
		Help: "Unix time of the last successful transform run.",
	})
)

func init() {
	Registry.MustRegister(
		EventsIngested,
		EventsSkipped,
		EventsFetched,
		FactRows,
		EventsExcluded,
		StageDuration,
		LastSuccess,
	)
}
