package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsIngested counts successfully persisted documents.
	DocumentsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paperstack_documents_ingested_total",
		Help: "Number of documents successfully ingested.",
	})

	// IngestFailures counts failed ingestion runs by pipeline stage.
	IngestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperstack_ingest_failures_total",
		Help: "Number of failed ingestion runs, by stage.",
	}, []string{"stage"})

	// Searches counts executed search and filter queries.
	Searches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paperstack_searches_total",
		Help: "Number of search and filter queries executed.",
	})
)
