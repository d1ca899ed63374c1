// Package telemetry exposes the harvester's Prometheus metrics.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal counts fetch attempts by mode.
	FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_fetches_total",
		Help: "The total number of fetch attempts, labeled by fetch mode.",
	}, []string{"mode"})

	// FetchErrorsTotal counts unit-scoped failures by taxonomy kind.
	FetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_unit_errors_total",
		Help: "The total number of unit-scoped failures, labeled by error kind.",
	}, []string{"kind"})

	// RecordsExtracted counts records produced by the extraction engine.
	RecordsExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_records_extracted_total",
		Help: "The total number of records extracted from fetched payloads.",
	})

	// RecordsPersisted counts records durably written to the store.
	RecordsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_records_persisted_total",
		Help: "The total number of records persisted to the document store.",
	})

	// RecordsDropped counts records discarded as ill-formed.
	RecordsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_records_dropped_total",
		Help: "The total number of records dropped for empty text after cleaning.",
	})

	// DeadLettersTotal counts entries routed to the dead-letter sink.
	DeadLettersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_dead_letters_total",
		Help: "The total number of failed units routed to the dead-letter sink.",
	})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "harvester_fetch_duration_seconds",
		Help:    "Wall time spent per fetch, navigation through final read.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"mode"})

	throttleDelay = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "harvester_throttle_delay_seconds",
		Help: "Current adaptive inter-request delay per host.",
	}, []string{"host"})
)

// ObserveFetchDuration records one fetch's wall time.
func ObserveFetchDuration(mode string, d time.Duration) {
	fetchDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// SetThrottleDelay publishes the adaptive delay chosen for a host.
func SetThrottleDelay(host string, d time.Duration) {
	throttleDelay.WithLabelValues(host).Set(d.Seconds())
}
