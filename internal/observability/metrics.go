package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	RecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trailstore_recorded_total",
		Help: "Total number of entities written to the store.",
	}, []string{"entity"})

	RejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trailstore_rejected_total",
		Help: "Total number of record operations rejected by validation.",
	}, []string{"entity"})

	CommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trailstore_commit_seconds",
		Help:    "Time spent committing a session transaction.",
		Buckets: prometheus.DefBuckets,
	})

	ImportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trailstore_import_seconds",
		Help:    "Time spent importing a batch of fact files.",
		Buckets: prometheus.DefBuckets,
	})

	ImportedDocuments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trailstore_imported_documents_total",
		Help: "Total number of documents recorded by the importer.",
	})

	OpenStores = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trailstore_open_stores",
		Help: "Current number of open store sessions.",
	})
)
