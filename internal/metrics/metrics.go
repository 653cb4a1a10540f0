// Package metrics holds the Prometheus collectors for the forensics
// endpoints and the archive worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultTooLarge = "too_large"
	ResultSkipped  = "skipped"
	ResultResolved = "resolved"
	ResultMissing  = "unresolved"
)

var (
	ExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forensics_exports_total",
		Help: "Replay bundle exports by outcome",
	}, []string{"result"})

	ExportEvents = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "forensics_export_events",
		Help:    "Events per exported replay bundle",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	ExportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "forensics_export_duration_seconds",
		Help:    "Time to fetch, filter and build an export bundle",
		Buckets: prometheus.DefBuckets,
	})

	UndoResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forensics_undo_resolutions_total",
		Help: "Undo records resolved to an inverted diff, by outcome",
	}, []string{"result"})

	ArchivesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forensics_archives_total",
		Help: "Archive window runs by outcome",
	}, []string{"result"})
)
